// Package tui pages through submitted products in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/listing"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 2)
	tableStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var headers = []string{"CATEGORY", "MODEL", "SERIAL NUMBER", "DATE OF INVOICE"}

type loadedMsg struct {
	err error
}

// Model is the bubbletea model wrapping one mounted listing.Viewer.
type Model struct {
	ctx    context.Context
	viewer *listing.Viewer
	err    error
}

func New(ctx context.Context, viewer *listing.Viewer) Model {
	return Model{ctx: ctx, viewer: viewer}
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, viewer *listing.Viewer, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, viewer), opts...).Run()
	viewer.Unmount()
	return err
}

func (m Model) Init() tea.Cmd {
	viewer, ctx := m.viewer, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: viewer.Load(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.viewer.CurrentPage()
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "right", "l", "n", "pgdown":
		page++
	case "left", "h", "p", "pgup":
		page--
	case "home", "g":
		page = 1
	case "end", "G":
		page = m.viewer.TotalPages()
	default:
		return m, nil
	}
	// Out-of-range moves are ignored; the viewer keeps its page.
	_ = m.viewer.SetPage(page)
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("List Of Products"))
	b.WriteString("\n\n")

	state := m.viewer.State()
	switch state.Phase {
	case listing.PhaseLoading:
		b.WriteString("Loading...\n")
		return b.String()
	case listing.PhaseFailed:
		b.WriteString(errorStyle.Render("Submitted records could not be loaded: " + state.Reason))
		b.WriteString("\n")
	}

	b.WriteString(tableStyle.Render(renderTable(m.viewer.VisiblePage())))
	b.WriteString("\n")

	total := m.viewer.TotalPages()
	footer := fmt.Sprintf("Page %d of %d · %d products · ←/→ page · q quit", m.viewer.CurrentPage(), max(total, 1), m.viewer.Len())
	b.WriteString(footerStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func renderTable(rows []domain.SubmittedRecord) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Category, r.Model, r.SNumber, r.DateOfInvoice})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	lines := []string{headerStyle.Render(formatRow(headers, widths))}
	if len(cells) == 0 {
		lines = append(lines, "No rows to display.")
	}
	for _, row := range cells {
		lines = append(lines, formatRow(row, widths))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatRow(cols []string, widths []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
	}
	return strings.Join(parts, "  ")
}
