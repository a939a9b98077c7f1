package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chaingate/internal/config"
)

// Server is the HTTP surface of the gateway.
type Server struct {
	cfg        *config.Config
	handler    *Handler
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a new Server
func New(cfg *config.Config, h *Handler, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: h,
		logger:  logger,
	}
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", addr).
			Msg("starting gateway server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
