// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package app binds the active configuration and the shared KVS client to the
// resolver for each invocation.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/kvs-playback/internal/config"
	"github.com/ManuGH/kvs-playback/internal/kvs"
	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// ErrClientInit is returned when the KVS client could not be built.
var ErrClientInit = errors.New("kvs client initialization failed")

// Backend is everything a resolution needs from KVS.
type Backend interface {
	resolver.StreamLister
	resolver.EndpointResolver
	resolver.SessionURLResolver
}

// BackendSource returns the process-wide backend, building it on first use.
type BackendSource func(ctx context.Context) (Backend, error)

// FromLazy adapts a lazily built KVS client.
func FromLazy(l *kvs.Lazy) BackendSource {
	return func(ctx context.Context) (Backend, error) {
		c, err := l.Get(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Service implements api.PlaybackService.
type Service struct {
	cfg     func() config.AppConfig
	backend BackendSource

	mu      sync.Mutex
	lastRun time.Time
	partial bool
	lastErr string
}

// NewService creates a Service. cfg is read on every call so reloads apply
// to the next invocation.
func NewService(cfg func() config.AppConfig, backend BackendSource) *Service {
	return &Service{cfg: cfg, backend: backend}
}

// Resolve runs one resolution with the current settings.
func (s *Service) Resolve(ctx context.Context) (resolver.Result, error) {
	cfg := s.cfg()

	backend, err := s.backend(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrClientInit, err)
		s.record(false, err)
		return resolver.Result{}, err
	}

	r := resolver.New(resolver.Config{
		Prefix:  cfg.StreamPrefix,
		Policy:  cfg.FailurePolicy,
		Session: kvs.SessionParams{Expires: cfg.SessionExpires},
	}, backend, backend, backend)

	res, err := r.Resolve(ctx)
	s.record(res.Partial(), err)
	return res, err
}

// ReportPartial reports whether partial-failure details go into the body.
func (s *Service) ReportPartial() bool {
	return s.cfg().ReportPartial
}

// LastRun returns when the last resolution finished and how it went.
func (s *Service) LastRun() (time.Time, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.partial, s.lastErr
}

func (s *Service) record(partial bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now()
	s.partial = partial
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}
