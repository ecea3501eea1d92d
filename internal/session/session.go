// Package session keys intake controllers and listing viewers to browsers.
// Each browser gets one Session holding exactly one controller and at most one
// mounted viewer; idle sessions are evicted on a cron schedule.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/vbonduro/productreg/internal/intake"
	"github.com/vbonduro/productreg/internal/listing"
	"github.com/vbonduro/productreg/internal/stagestore"
)

const CookieName = "productreg_session"

// Session is the server-side state of one browser.
type Session struct {
	ID     string
	Intake *intake.Controller

	querier listing.Querier
	logger  *slog.Logger

	mu       sync.Mutex
	viewer   *listing.Viewer
	lastSeen time.Time
}

// MountListing replaces the session's viewer with a fresh one, unmounting the
// previous viewer so a fetch it still has in flight is discarded.
func (s *Session) MountListing() *listing.Viewer {
	v := listing.NewViewer(s.querier, s.logger)
	s.mu.Lock()
	old := s.viewer
	s.viewer = v
	s.mu.Unlock()
	if old != nil {
		old.Unmount()
	}
	return v
}

// Listing returns the mounted viewer, or nil if the listing was never opened.
func (s *Session) Listing() *listing.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close(ctx context.Context) {
	s.mu.Lock()
	v := s.viewer
	s.viewer = nil
	s.mu.Unlock()
	if v != nil {
		v.Unmount()
	}
	s.Intake.Reset(ctx)
}

// Options wires a Manager to its collaborators.
type Options struct {
	Submitter intake.Submitter
	Querier   listing.Querier
	Blobs     stagestore.Store
	Limits    intake.Limits
	TTL       time.Duration
	Secure    bool
	Logger    *slog.Logger
}

// Manager owns all live sessions. It is safe for concurrent use.
type Manager struct {
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
	now    func() time.Time
	cron   *cron.Cron

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:     opts,
		base:     logger,
		logger:   logger.With("component", "session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Lookup returns the session named by the request cookie, creating one (and
// setting the cookie on w) when the cookie is missing or stale.
func (m *Manager) Lookup(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if s, ok := m.Get(c.Value); ok {
			s.touch(m.now())
			return s
		}
	}

	s := m.create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) create() *Session {
	id := uuid.NewString()
	s := &Session{
		ID:       id,
		Intake:   intake.NewController(m.opts.Submitter, m.opts.Blobs, m.opts.Limits, id, m.base),
		querier:  m.opts.Querier,
		logger:   m.base.With("session", id),
		lastSeen: m.now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("session created", "session", id)
	return s
}

// Sweep evicts sessions idle longer than the TTL and drops their staged
// files. It returns the number of sessions evicted.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.opts.TTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close(ctx)
	}
	if len(expired) > 0 {
		m.logger.Info("evicted idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Start runs Sweep on schedule (a cron expression such as "@every 5m").
func (m *Manager) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		m.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	m.logger.Info("starting session janitor", "schedule", schedule, "ttl", m.opts.TTL)
	m.cron = c
	c.Start()
	return nil
}

// Stop halts the janitor, waits for a running sweep, then closes every live
// session.
func (m *Manager) Stop(ctx context.Context) {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.close(ctx)
	}
	m.logger.Info("session janitor stopped", "closed", len(all))
}
