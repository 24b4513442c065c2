// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kvs-playback/internal/config"
	"github.com/ManuGH/kvs-playback/internal/kvs"
	"github.com/ManuGH/kvs-playback/internal/resolver"
)

type fakeBackend struct {
	streams   []string
	failStage map[string]error
	expires   []time.Duration
	prefixes  []string
}

func (f *fakeBackend) ListStreams(_ context.Context, prefix string) ([]kvs.Stream, error) {
	f.prefixes = append(f.prefixes, prefix)
	out := make([]kvs.Stream, 0, len(f.streams))
	for _, s := range f.streams {
		out = append(out, kvs.Stream{Name: s})
	}
	return out, nil
}

func (f *fakeBackend) DataEndpoint(_ context.Context, stream string) (string, error) {
	if err := f.failStage[stream]; err != nil {
		return "", err
	}
	return "https://ep/" + stream, nil
}

func (f *fakeBackend) SessionURL(_ context.Context, endpoint, _ string, p kvs.SessionParams) (string, error) {
	f.expires = append(f.expires, p.Expires)
	return endpoint + "/hls", nil
}

type cfgBox struct {
	mu  sync.Mutex
	cfg config.AppConfig
}

func (b *cfgBox) get() config.AppConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *cfgBox) set(cfg config.AppConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

func staticBackend(b Backend) BackendSource {
	return func(context.Context) (Backend, error) { return b, nil }
}

func TestService_ResolveUsesCurrentConfig(t *testing.T) {
	be := &fakeBackend{streams: []string{"hassela-1", "hassela-2"}}
	cfg := config.Defaults()
	box := &cfgBox{cfg: cfg}
	svc := NewService(box.get, staticBackend(be))

	res, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ep/hassela-1/hls", "https://ep/hassela-2/hls"}, res.URLs)
	assert.Equal(t, []string{config.DefaultStreamPrefix}, be.prefixes)

	cfg.StreamPrefix = "other"
	cfg.SessionExpires = 30 * time.Minute
	cfg.ReportPartial = true
	box.set(cfg)

	_, err = svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "other", be.prefixes[1])
	assert.Equal(t, 30*time.Minute, be.expires[len(be.expires)-1])
	assert.True(t, svc.ReportPartial())
}

func TestService_SkipPolicyFromConfig(t *testing.T) {
	be := &fakeBackend{
		streams:   []string{"a", "b", "c"},
		failStage: map[string]error{"b": kvs.ErrForbidden},
	}
	cfg := config.Defaults()
	cfg.FailurePolicy = resolver.PolicySkip
	svc := NewService(func() config.AppConfig { return cfg }, staticBackend(be))

	res, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ep/a/hls", "https://ep/c/hls"}, res.URLs)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].Stream)

	at, partial, lastErr := svc.LastRun()
	assert.False(t, at.IsZero())
	assert.True(t, partial)
	assert.Empty(t, lastErr)
}

func TestService_AbortIsDefault(t *testing.T) {
	be := &fakeBackend{
		streams:   []string{"a", "b", "c"},
		failStage: map[string]error{"b": kvs.ErrForbidden},
	}
	cfg := config.Defaults()
	cfg.FailurePolicy = ""
	svc := NewService(func() config.AppConfig { return cfg }, staticBackend(be))

	res, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ep/a/hls"}, res.URLs)
	assert.Equal(t, 1, res.NotAttempted)
}

func TestService_ClientInitFailureIsFatal(t *testing.T) {
	cause := errors.New("no credentials")
	svc := NewService(config.Defaults, func(context.Context) (Backend, error) { return nil, cause })

	_, err := svc.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientInit)
	assert.ErrorIs(t, err, cause)

	_, _, lastErr := svc.LastRun()
	assert.Contains(t, lastErr, "no credentials")
}

func TestFromLazy_RetriesFailedBuild(t *testing.T) {
	attempts := 0
	lazy := kvs.NewLazy(func(context.Context) (*kvs.Client, error) {
		attempts++
		return nil, errors.New("boom")
	})
	src := FromLazy(lazy)

	_, err := src(context.Background())
	require.Error(t, err)
	_, err = src(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestService_ListFailurePropagates(t *testing.T) {
	svc := NewService(config.Defaults, func(context.Context) (Backend, error) {
		return listFailBackend{&fakeBackend{}}, nil
	})
	_, err := svc.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, resolver.ErrListStreams)
	assert.ErrorIs(t, err, kvs.ErrThrottled)
}

type listFailBackend struct{ *fakeBackend }

func (listFailBackend) ListStreams(context.Context, string) ([]kvs.Stream, error) {
	return nil, kvs.ErrThrottled
}
