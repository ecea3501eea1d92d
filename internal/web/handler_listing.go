package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/listing"
)

type listingPageView struct {
	ActiveNav string
	Table     *listingView
}

type listingView struct {
	State      listing.LoadState
	Rows       []domain.SubmittedRecord
	Page       int
	TotalPages int
	Pages      []int
}

func newListingView(v *listing.Viewer) *listingView {
	total := v.TotalPages()
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}
	return &listingView{
		State:      v.State(),
		Rows:       v.VisiblePage(),
		Page:       v.CurrentPage(),
		TotalPages: total,
		Pages:      pages,
	}
}

// handleListingPage mounts a fresh viewer and renders the page shell; the
// table itself is fetched by the shell.
func (s *Server) handleListingPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)
	sess.MountListing()

	if err := s.renderPage(w, listingPageView{ActiveNav: "submitted"},
		"base.html", "pages/submitted.html", "partials/records_table.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleListingTable loads the mounted viewer on first use and renders page n
// (or the current page when n is absent).
func (s *Server) handleListingTable(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)
	v := sess.Listing()
	if v == nil {
		v = sess.MountListing()
	}

	// The fetch outlives a disconnected client; remounting discards it.
	if err := v.Load(context.WithoutCancel(r.Context())); err != nil {
		s.logger.Warn("listing load failed", "session", sess.ID, "error", err)
	}

	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		if err := v.SetPage(n); err != nil {
			if errors.Is(err, listing.ErrPageOutOfRange) {
				http.Error(w, "page out of range", http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to change page", http.StatusInternalServerError)
			return
		}
	}

	if !isHTMX(r) {
		if err := s.renderPage(w, listingPageView{ActiveNav: "submitted", Table: newListingView(v)},
			"base.html", "pages/submitted.html", "partials/records_table.html",
		); err != nil {
			s.logger.Error("render page failed", "error", err)
		}
		return
	}
	if err := s.renderPartial(w, "records_table", newListingView(v), "partials/records_table.html"); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}
