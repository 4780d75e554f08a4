package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flight-bridge/fcb/internal/auth"
	"github.com/flight-bridge/fcb/internal/config"
)

// Server represents the HTTP API server.
type Server struct {
	mu             sync.Mutex
	httpServer     *http.Server
	cfg            config.ServerConfig
	telemetryHub   TelemetryPort
	commands       CommandPort
	authMiddleware *auth.Middleware
	log            *slog.Logger
	version        string
	startTime      time.Time
}

// NewServer creates a new API server. A nil authMiddleware disables
// authentication.
func NewServer(cfg config.ServerConfig, telemetryHub TelemetryPort, commands CommandPort, authMiddleware *auth.Middleware, log *slog.Logger, version string) *Server {
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(nil, log)
	}
	return &Server{
		cfg:            cfg,
		telemetryHub:   telemetryHub,
		commands:       commands,
		authMiddleware: authMiddleware,
		log:            log,
		version:        version,
		startTime:      time.Now(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start listens on cfg.Addr and serves until Stop. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.log.Info("API server listening", "addr", ln.Addr().String(), "auth", s.authMiddleware.Enabled())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
