package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"JournalSync/internal/domain"
)

const defaultMaxBody = 4 << 20

// SyncProcessor reconciles client batches.
type SyncProcessor interface {
	ProcessBatch(ctx context.Context, batch domain.SyncBatch) (domain.SyncOutcome, error)
}

// ClusterRunner runs an on-demand clustering pass.
type ClusterRunner interface {
	Run(ctx context.Context, window domain.Window) ([]domain.Cluster, error)
}

// AlertScanner runs an on-demand alert scan.
type AlertScanner interface {
	Scan(ctx context.Context, window domain.Window) ([]domain.Alert, error)
}

// Reader serves the read-only endpoints.
type Reader interface {
	GetEntry(ctx context.Context, id string) (domain.Entry, error)
	GetAuthor(ctx context.Context, authorID string) (domain.Author, error)
	ListClusters(ctx context.Context, filter domain.ClusterFilter) ([]domain.Cluster, error)
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
}

// Deps wires handlers to use cases.
type Deps struct {
	Sync         SyncProcessor
	Clustering   ClusterRunner
	Alerts       AlertScanner
	Reader       Reader
	Logger       *slog.Logger
	MaxBodyBytes int64
	Timeout      time.Duration
}

// Server exposes the sync protocol and analytics over HTTP.
type Server struct {
	sync       SyncProcessor
	clustering ClusterRunner
	alerts     AlertScanner
	reader     Reader
	logger     *slog.Logger
	maxBody    int64
	router     *chi.Mux
}

// New builds the router with middleware and routes registered.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		sync:       deps.Sync,
		clustering: deps.Clustering,
		alerts:     deps.Alerts,
		reader:     deps.Reader,
		logger:     logger,
		maxBody:    maxBody,
		router:     chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/sync", s.handleSync)

		r.Get("/entries/{id}", s.handleGetEntry)
		r.Get("/authors/{id}", s.handleGetAuthor)

		r.Get("/clusters", s.handleListClusters)
		r.Post("/clusters/run", s.handleRunClustering)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/scan", s.handleScanAlerts)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
