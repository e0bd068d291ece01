// Package httpserver provides the HTTP REST API for the fetch coordinator.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/coordinator"
	"github.com/scidex/scifetch/internal/sources"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath serves the Prometheus scrape endpoint when non-empty.
	MetricsPath string
	// MetricsGatherer backs the scrape endpoint. Nil uses the default
	// Prometheus gatherer.
	MetricsGatherer prometheus.Gatherer
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	coord      *coordinator.Coordinator
	registry   *sources.Registry
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server over the coordinator.
func NewServer(cfg Config, coord *coordinator.Coordinator, registry *sources.Registry, logger zerolog.Logger) *Server {
	s := &Server{
		coord:    coord,
		registry: registry,
		validate: validator.New(),
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter(cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if cfg.MetricsPath != "" {
		gatherer := cfg.MetricsGatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Method(http.MethodGet, cfg.MetricsPath,
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.searchHandler)
		r.Post("/search/pages", s.searchPagesHandler)
		r.Get("/sources", s.listSourcesHandler)
		r.Get("/records/{source}/{id}", s.getRecordHandler)
		r.Get("/records/{source}/{id}/summary", s.getSummaryHandler)
		r.Get("/records/{source}/{id}/links", s.getLinksHandler)
	})

	return r
}

// Router exposes the underlying handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness: at least one source adapter must be
// enabled for the service to do useful work.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	enabled := s.registry.EnabledClients()
	if len(enabled) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  "no sources enabled",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"enabled_sources": len(enabled),
	})
}
