// Package api exposes the analysis service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"alphabot/app"
	"alphabot/internal"
)

// Config holds API server configuration
type Config struct {
	Port string
}

// Server wraps the chi router and the analysis service
type Server struct {
	config   Config
	router   *chi.Mux
	analysis *app.AnalysisService
	logger   *internal.Logger
}

// NewServer creates the HTTP server with all routes registered
func NewServer(config Config, analysis *app.AnalysisService, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		config:   config,
		router:   chi.NewRouter(),
		analysis: analysis,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/reload", s.handleReload)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/health", s.handleHealth)
	})
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	addr := ":" + s.config.Port
	s.logger.Info("API listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}
