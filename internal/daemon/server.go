// SPDX-License-Identifier: MIT

// Package daemon runs the local HTTP server and its graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/kvs-playback/internal/log"
)

// Config holds server settings.
type Config struct {
	ListenAddr string

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// ShutdownTimeout is the graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// DefaultConfig returns production timeouts for addr.
func DefaultConfig(addr string) Config {
	return Config{
		ListenAddr:        addr,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   15 * time.Second,
	}
}

// ShutdownHook runs after the server stopped accepting requests.
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Server owns one http.Server.
type Server struct {
	config Config
	server *http.Server
	logger zerolog.Logger
	hooks  []ShutdownHook
	ready  chan net.Addr
}

// New creates a server for handler.
func New(cfg Config, handler http.Handler) *Server {
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		logger: log.WithComponent("daemon"),
		ready:  make(chan net.Addr, 1),
	}
}

// RegisterShutdownHook adds fn to the hooks run by Shutdown, in registration order.
func (s *Server) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Fn: fn})
}

// Ready yields the bound address once the listener is open.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.ListenAddr, err)
	}
	s.ready <- ln.Addr()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str(log.FieldEvent, "server.listening").
			Str("addr", ln.Addr().String()).
			Msg("HTTP server listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownErr := s.Shutdown(context.Background())
	if err := <-errChan; err != nil {
		return err
	}
	return shutdownErr
}

// Shutdown stops the server and runs the hooks. Hook errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str(log.FieldEvent, "server.shutdown").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	for _, h := range s.hooks {
		if err := h.Fn(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Str("hook", h.Name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
	}

	s.logger.Info().Str(log.FieldEvent, "server.stopped").Msg("server stopped")
	return errors.Join(errs...)
}
