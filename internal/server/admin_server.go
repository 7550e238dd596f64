// Package server runs the admin API listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// AdminServer serves the admin API over HTTP/1.1 and, when enabled,
// cleartext HTTP/2 on the same port
type AdminServer struct {
	config     config.AdminConfig
	logger     *logger.Logger
	httpServer *http.Server
}

// NewAdminServer creates an admin server listening on port
func NewAdminServer(cfg config.AdminConfig, port int, handler http.Handler, log *logger.Logger) *AdminServer {
	s := &AdminServer{
		config: cfg,
		logger: log.WithField("component", "admin_server"),
	}

	if cfg.HTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          cfg.IdleTimeout,
		})
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the handler actually served, including the h2c upgrade
func (s *AdminServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *AdminServer) Addr() string {
	return s.httpServer.Addr
}

// Start blocks serving requests until Shutdown is called
func (s *AdminServer) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"addr":          s.httpServer.Addr,
		"http2_enabled": s.config.HTTP2,
		"read_timeout":  s.config.ReadTimeout.String(),
		"write_timeout": s.config.WriteTimeout.String(),
	}).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *AdminServer) Shutdown(ctx context.Context) error {
	start := time.Now()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to shutdown HTTP server")
		return err
	}
	s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("HTTP server stopped")
	return nil
}
