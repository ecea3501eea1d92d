// Package listing fetches submitted registrations once per mount and pages
// through them client-side.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/productreg/internal/domain"
)

// PageSize is the number of rows shown per page.
const PageSize = 8

// ErrPageOutOfRange is returned by SetPage for pages outside 1..max(TotalPages,1).
var ErrPageOutOfRange = errors.New("listing: page out of range")

// Querier fetches every submitted record from the Query Service.
type Querier interface {
	Records(ctx context.Context) ([]domain.Record, error)
}

// Phase is the load state of a viewer.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// LoadState is the current phase. Reason is only set for PhaseFailed.
type LoadState struct {
	Phase  Phase
	Reason string
}

// Viewer is the state behind one mounted listing screen. It is safe for
// concurrent use.
type Viewer struct {
	querier Querier
	logger  *slog.Logger

	mu        sync.Mutex
	records   []domain.SubmittedRecord
	gen       int // bumped whenever records is replaced
	state     LoadState
	started   bool
	unmounted bool
	page      int
	memo      pageMemo
}

type pageMemo struct {
	valid    bool
	page     int
	gen      int
	rows     []domain.SubmittedRecord
	computed int
}

// NewViewer mounts a viewer on page 1 in the loading state.
func NewViewer(querier Querier, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		querier: querier,
		logger:  logger.With("component", "listing"),
		state:   LoadState{Phase: PhaseLoading},
		page:    1,
	}
}

// Load fetches the records. Only the first call does any work; later calls
// return nil. A failure leaves the list empty and moves to PhaseFailed.
func (v *Viewer) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return nil
	}
	v.started = true
	v.mu.Unlock()

	raw, err := v.querier.Records(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		v.logger.Debug("discarding records for unmounted viewer")
		return nil
	}
	if err != nil {
		v.state = LoadState{Phase: PhaseFailed, Reason: err.Error()}
		v.logger.Error("failed to fetch submitted records", "error", err)
		return fmt.Errorf("failed to load records: %w", err)
	}

	records := make([]domain.SubmittedRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, domain.SubmittedRecord{
			Category:      r.Category,
			Model:         r.Model,
			SNumber:       r.SNumber,
			DateOfInvoice: FormatDate(r.DateOfInvoice),
		})
	}
	v.records = records
	v.gen++
	v.state = LoadState{Phase: PhaseReady}
	v.logger.Info("submitted records loaded", "records", len(records))
	return nil
}

// Unmount marks the viewer as gone; a Load still in flight is discarded.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	v.unmounted = true
	v.mu.Unlock()
}

// State returns the current load state.
func (v *Viewer) State() LoadState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Len returns the number of fetched records.
func (v *Viewer) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.records)
}

// TotalPages is ceil(records / PageSize); zero for an empty list.
func (v *Viewer) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return TotalPages(len(v.records))
}

// CurrentPage returns the 1-indexed current page.
func (v *Viewer) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SetPage moves to page n. Pages outside 1..max(TotalPages,1) are refused and
// leave the current page unchanged.
func (v *Viewer) SetPage(n int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > max(TotalPages(len(v.records)), 1) {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, n)
	}
	v.page = n
	return nil
}

// VisiblePage returns the rows of the current page. The slice is cached until
// the page or the record list changes and must not be modified.
func (v *Viewer) VisiblePage() []domain.SubmittedRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.memo.valid && v.memo.page == v.page && v.memo.gen == v.gen {
		return v.memo.rows
	}
	v.memo = pageMemo{
		valid:    true,
		page:     v.page,
		gen:      v.gen,
		rows:     Slice(v.records, v.page),
		computed: v.memo.computed + 1,
	}
	return v.memo.rows
}

// TotalPages returns ceil(count / PageSize).
func TotalPages(count int) int {
	return (count + PageSize - 1) / PageSize
}

// Slice returns rows [(page-1)*PageSize, page*PageSize) of records, clipped
// to its length.
func Slice[T any](records []T, page int) []T {
	start := (page - 1) * PageSize
	if page < 1 || start >= len(records) {
		return []T{}
	}
	end := min(start+PageSize, len(records))
	return records[start:end:end]
}
