package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/appart/internal/config"
	"github.com/JaimeStill/appart/internal/infrastructure"
)

// Server owns the shared infrastructure, the mounted modules, and the HTTP listener.
type Server struct {
	infra           *infrastructure.Infrastructure
	modules         *Modules
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg.Version)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"storage", cfg.Storage.Provider,
		"routing", cfg.Workflow.Routing,
		"max_concurrency", cfg.Workflow.MaxConcurrency,
		"write_timeout", cfg.Server.WriteTimeoutDuration(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
			WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
			IdleTimeout:       cfg.Server.IdleTimeoutDuration(),
		},
		logger:          infra.Logger.With("system", "http"),
		shutdownTimeout: cfg.Server.ShutdownTimeoutDuration(),
	}, nil
}

// Start starts the infrastructure subsystems, then the listener. The listener
// drains in-flight requests, including running batches, when the lifecycle
// context is cancelled.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	lc := s.infra.Lifecycle
	lc.OnShutdown(func() {
		<-lc.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
			return
		}
		s.logger.Info("server shutdown complete")
	})

	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
