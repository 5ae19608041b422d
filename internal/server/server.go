// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it connects handlers, middleware and
// routes, and owns the graceful shutdown. The execution engine itself is
// built in main and passed in, so tests can hand the server a mock.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/coderun/internal/executor"
	"github.com/sakif/coderun/internal/handler"
	"github.com/sakif/coderun/internal/metrics"
	"github.com/sakif/coderun/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Port int
	// WriteTimeout must outlast the slowest execution: compile limit plus
	// run limit plus some slack for process startup.
	WriteTimeout time.Duration
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	exec      executor.Executor
	languages handler.LanguageLister
	metrics   *metrics.Metrics
}

// New creates a new Server. m may be nil, in which case /metrics is not
// mounted.
func New(cfg Config, logger *slog.Logger, exec executor.Executor, languages handler.LanguageLister, m *metrics.Metrics) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		exec:      exec,
		languages: languages,
		metrics:   m,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /api/execute    → compile and run code (JSON)
// GET    /api/languages  → supported languages (JSON)
// GET    /healthz        → liveness probe
// GET    /metrics        → Prometheus exposition
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger and the executor's log lines can carry
// the same id; Recoverer runs last so it sits closest to the handlers.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	executeHandler := handler.NewExecuteHandler(s.exec, s.logger)
	languagesHandler := handler.NewLanguagesHandler(s.languages)

	s.router.Get("/healthz", handler.HandleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/languages", languagesHandler.HandleList)
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a listen
// error. In-flight executions get 30 seconds to finish; their workspaces are
// cleaned up by the executor either way.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
