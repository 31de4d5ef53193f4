package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/pipeline"
	"github.com/dgallion1/outliner/internal/store"
)

// Options configures the HTTP API.
type Options struct {
	// APIKey guards /api routes with a bearer token. Empty disables auth.
	APIKey         string
	MaxUploadBytes int64
}

// Server is the HTTP API for submitting documents and reading results.
type Server struct {
	router chi.Router
	queue  *pipeline.Queue
	store  store.Store
	llm    *llm.Handle
	log    *slog.Logger
	opts   Options
}

// NewServer creates and configures the HTTP server.
func NewServer(q *pipeline.Queue, st store.Store, h *llm.Handle, log *slog.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	s := &Server{
		queue: q,
		store: st,
		llm:   h,
		log:   log,
		opts:  opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.opts.APIKey != "" {
			r.Use(AuthMiddleware(s.opts.APIKey, s.log))
		}

		r.Post("/api/outline", s.handleOutline)
		r.Post("/api/notes", s.handleNotes)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/outlines", s.handleListOutlines)
		r.Get("/api/outlines/{name}", s.handleGetOutline)
		r.Delete("/api/outlines/{name}", s.handleDeleteOutline)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.llm.Available(); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"queue_depth": s.queue.QueueDepth(),
	})
}
