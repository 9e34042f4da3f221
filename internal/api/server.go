// Package api exposes the report engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the listener settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	router          *chi.Mux
	logger          zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewServer builds the router and the underlying http.Server.
func NewServer(reports Reports, logger zerolog.Logger, cfg Config) *Server {
	logger = logger.With().Str("component", "api").Logger()
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	router := NewRouter(NewHandler(reports), &logger)

	return &Server{
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// NewRouter mounts the report routes under /api/v1.
func NewRouter(h *Handler, logger *zerolog.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(Logger(logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(Identity)
		r.Get("/", h.ListReports)
		r.Post("/runs", h.CreateRun)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/runs/{runID}/spreadsheet", h.DownloadSpreadsheet)
		r.Get("/runs/{runID}/print", h.PrintDocument)
	})

	return router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", s.server.Addr).Msg("starting server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed")
			return s.server.Close()
		}
		return nil
	})

	return g.Wait()
}
