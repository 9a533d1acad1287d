package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/devup/internal/api/models"
	"github.com/smazurov/devup/internal/events"
	"github.com/smazurov/devup/internal/logging"
	"github.com/smazurov/devup/internal/process"
	"github.com/smazurov/devup/internal/version"
)

// StatusSource provides point-in-time process status.
type StatusSource interface {
	Snapshot() []process.Status
}

// Options configures the status server.
type Options struct {
	Processes         StatusSource
	EventBus          *events.Bus
	PrometheusHandler http.Handler
}

// Server is the read-only status API for a running supervisor.
type Server struct {
	api     huma.API
	mux     *http.ServeMux
	mu      sync.Mutex
	stopped bool
	// set by Start
	httpServer *http.Server
	processes  StatusSource
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates a status server. It does not listen until Start.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("devup", version.String())
	config.Info.Description = "Status of the processes managed by devup"
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server := &Server{
		api:       api,
		mux:       mux,
		processes: opts.Processes,
		eventBus:  opts.EventBus,
		logger:    logging.GetLogger("api"),
	}

	server.registerRoutes()

	return server
}

// GetMux returns the underlying ServeMux.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start serves the API on addr until Stop is called.
// It returns http.ErrServerClosed after a normal stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting status API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	return httpServer.ListenAndServe()
}

// Stop closes the listener and all open connections, including SSE streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping status API server")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "supervisor is running",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerProcessRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
}
