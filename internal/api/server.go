// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/signaledge/internal/api/handler/api"
	"github.com/newthinker/signaledge/internal/api/job"
	"github.com/newthinker/signaledge/internal/api/middleware"
	"github.com/newthinker/signaledge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for signaledge
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	APIKey          string
	JobTTL          time.Duration
	MaxJobs         int
	BacktestTimeout time.Duration
	MetricsPath     string // empty disables /metrics
}

// Service is what the API needs from the application
type Service interface {
	handler.Runner
	handler.HistoryLister
	handler.Catalog
}

// Dependencies holds the collaborators the routes are served by
type Dependencies struct {
	Service Service
	Metrics *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("server requires a service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
	}

	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	auth := middleware.APIKeyAuth(cfg.APIKey)
	route := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth(fn))
	}

	var gauge handler.JobsGauge
	if deps.Metrics != nil {
		gauge = deps.Metrics
	}

	backtests := handler.NewBacktestHandler(s.jobs, deps.Service, gauge, cfg.BacktestTimeout)
	runs := handler.NewHistoryHandler(deps.Service)
	sources := handler.NewSourcesHandler(deps.Service)

	route("POST /api/v1/backtests", backtests.Create)
	route("GET /api/v1/backtests", backtests.List)
	route("GET /api/v1/backtests/{id}", backtests.GetStatus)
	route("GET /api/v1/history", runs.List)
	route("GET /api/v1/sources", sources.List)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if cfg.MetricsPath != "" && deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
