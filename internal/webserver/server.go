// Package webserver provides an HTTP server that exposes the live
// accumulator over a REST API and Prometheus metrics.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spboyer/streamauc/internal/webapi"
)

// DefaultPort is used when Config.Port is zero.
const DefaultPort = 3000

// Config holds the HTTP server configuration.
type Config struct {
	Port int
	// Host defaults to 127.0.0.1.
	Host string
	// Live is the accumulator served by the API. Required.
	Live webapi.LiveStore
	// ReportsDir, when set, serves saved JSON reports under /api/reports.
	ReportsDir string
	// Gatherer, when set, is exposed on /metrics.
	Gatherer prometheus.Gatherer
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server wraps the HTTP server with configuration.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *slog.Logger
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Live == nil {
		return nil, errors.New("webserver: a live store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	mux := http.NewServeMux()
	registerRoutes(mux, cfg)

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			Handler:           webapi.CORSMiddleware(logRequests(mux, cfg.Logger), cfg.AllowedOrigins...),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return s, nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("HTTP server starting", "address", ln.Addr().String())

	// Graceful shutdown on context cancellation.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	<-done
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
