// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"sync"

	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// fakeService returns a canned result and records the IDs it was called with.
type fakeService struct {
	mu      sync.Mutex
	result  resolver.Result
	err     error
	partial bool
	panics  bool

	calls          int
	requestIDs     []string
	correlationIDs []string
}

func (f *fakeService) Resolve(ctx context.Context) (resolver.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("resolver exploded")
	}
	f.calls++
	f.requestIDs = append(f.requestIDs, xglog.RequestIDFromContext(ctx))
	f.correlationIDs = append(f.correlationIDs, xglog.CorrelationIDFromContext(ctx))
	return f.result, f.err
}

func (f *fakeService) ReportPartial() bool { return f.partial }
