package web

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/productreg/internal/intake"
	"github.com/vbonduro/productreg/internal/session"
	"github.com/vbonduro/productreg/internal/stagestore"
)

type Server struct {
	sessions  *session.Manager
	blobs     stagestore.Store
	templates fs.FS
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
	srv       *http.Server
	maxBody   int64
}

func NewServer(sessions *session.Manager, blobs stagestore.Store, tmpl fs.FS, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions:  sessions,
		blobs:     blobs,
		templates: tmpl,
		mux:       http.NewServeMux(),
		maxBody:   maxUploadSize,
		logger:    logger.With("component", "web"),
		tmplFuncs: template.FuncMap{
			"fieldError": fieldError,
			"bytes":      func(n int64) string { return humanize.IBytes(uint64(n)) },
			"inc":        func(i int) int { return i + 1 },
			"sub":        func(a, b int) int { return a - b },
		},
	}
	s.srv = &http.Server{
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRegisterPage)
	s.mux.HandleFunc("POST /fields/{name}", s.handleUpdateField)
	s.mux.HandleFunc("POST /files", s.handleStageFiles)
	s.mux.HandleFunc("GET /files/{index}", s.handleGetStagedFile)
	s.mux.HandleFunc("POST /register", s.handleSubmit)
	s.mux.HandleFunc("GET /submitted-data", s.handleListingPage)
	s.mux.HandleFunc("GET /submitted-data/page", s.handleListingTable)
	s.mux.Handle("GET /static/", http.FileServerFS(s.templates))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe blocks until the server stops. After Shutdown it returns
// http.ErrServerClosed, including when Shutdown ran first.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("starting server", "addr", ln.Addr().String())
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses files and executes the {{define}} block called name.
func (s *Server) renderPartial(w http.ResponseWriter, name string, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, name, data)
}

type fieldErrorView struct {
	Field   string
	Message string
}

func fieldError(errs intake.ValidationErrors, field string) fieldErrorView {
	return fieldErrorView{Field: field, Message: errs[field]}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
