// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resolver turns a stream name prefix into a list of live HLS
// playback URLs: list matching streams, then per stream look up the data
// endpoint and request a session URL from it.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/kvs-playback/internal/kvs"
	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/metrics"
	"github.com/ManuGH/kvs-playback/internal/telemetry"
)

// StreamLister lists streams whose name begins with prefix, in service order.
type StreamLister interface {
	ListStreams(ctx context.Context, prefix string) ([]kvs.Stream, error)
}

// EndpointResolver returns the HLS data endpoint of one stream.
type EndpointResolver interface {
	DataEndpoint(ctx context.Context, stream string) (string, error)
}

// SessionURLResolver requests a live HLS session URL from a data endpoint.
type SessionURLResolver interface {
	SessionURL(ctx context.Context, endpoint, stream string, p kvs.SessionParams) (string, error)
}

// FailurePolicy decides what a per-stream failure does to the rest of the batch.
type FailurePolicy string

const (
	// PolicyAbort stops at the first failing stream and returns what was resolved so far.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip records the failure and moves on to the next stream.
	PolicySkip FailurePolicy = "skip"
)

// ParseFailurePolicy maps a config value to a FailurePolicy. Empty means abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// Config is the per-resolution configuration.
type Config struct {
	Prefix  string
	Policy  FailurePolicy
	Session kvs.SessionParams
}

// Failure records one stream that could not be resolved.
type Failure struct {
	Stream string
	Stage  Stage
	Err    error
}

// Result is the outcome of one resolution.
type Result struct {
	Prefix string
	// Listed is the number of streams the listing call returned.
	Listed int
	// URLs holds resolved session URLs in listing order. Never nil.
	URLs []string
	// Failures holds per-stream failures in the order they happened.
	Failures []Failure
	// NotAttempted counts streams left untouched after an abort.
	NotAttempted int
}

// Partial reports whether any listed stream is missing from URLs.
func (r Result) Partial() bool {
	return len(r.Failures) > 0 || r.NotAttempted > 0
}

// Resolver runs resolutions against its collaborators.
type Resolver struct {
	cfg       Config
	lister    StreamLister
	endpoints EndpointResolver
	sessions  SessionURLResolver
	tracer    trace.Tracer
}

// New creates a Resolver. Any policy other than PolicySkip aborts.
func New(cfg Config, lister StreamLister, endpoints EndpointResolver, sessions SessionURLResolver) *Resolver {
	if cfg.Policy != PolicySkip {
		cfg.Policy = PolicyAbort
	}
	return &Resolver{
		cfg:       cfg,
		lister:    lister,
		endpoints: endpoints,
		sessions:  sessions,
		tracer:    telemetry.Tracer("resolver"),
	}
}

// Resolve lists the configured streams and resolves a session URL for each,
// sequentially. A listing failure is returned as an error; per-stream
// failures end up in Result.Failures and never produce an error.
func (r *Resolver) Resolve(ctx context.Context) (res Result, err error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve")
	defer func() {
		span.SetAttributes(telemetry.ResolveAttributes(r.cfg.Prefix, string(r.cfg.Policy),
			res.Listed, len(res.URLs), len(res.Failures))...)
		errType := ""
		if err != nil {
			errType = string(StageList)
		}
		telemetry.EndSpan(span, err, errType)
	}()

	logger := xglog.WithComponentFromContext(ctx, "resolver").With().
		Str(xglog.FieldStreamPrefix, r.cfg.Prefix).
		Str(xglog.FieldPolicy, string(r.cfg.Policy)).
		Logger()

	res = Result{Prefix: r.cfg.Prefix, URLs: make([]string, 0)}

	streams, err := r.lister.ListStreams(ctx, r.cfg.Prefix)
	if err != nil {
		metrics.IncResolveFailure(string(StageList), kvs.Reason(err))
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "resolver.list_failed").
			Str(xglog.FieldStage, string(StageList)).
			Msg("could not list streams")
		return res, newStageError(StageList, "", err)
	}
	res.Listed = len(streams)
	metrics.AddStreamsListed(len(streams))

	for i, stream := range streams {
		url, stage, stepErr := r.resolveOne(ctx, stream.Name)
		if stepErr != nil {
			res.Failures = append(res.Failures, Failure{Stream: stream.Name, Stage: stage, Err: stepErr})
			r.logFailure(logger, stream.Name, stage, stepErr)
			if r.cfg.Policy == PolicyAbort {
				res.NotAttempted = len(streams) - i - 1
				break
			}
			continue
		}
		res.URLs = append(res.URLs, url)
		logger.Debug().
			Str(xglog.FieldEvent, "resolver.url_resolved").
			Str(xglog.FieldStreamName, stream.Name).
			Int(xglog.FieldResolved, len(res.URLs)).
			Msg("resolved session URL")
	}

	metrics.AddURLsResolved(len(res.URLs))
	logger.Info().
		Str(xglog.FieldEvent, "resolver.done").
		Int(xglog.FieldListed, res.Listed).
		Int(xglog.FieldResolved, len(res.URLs)).
		Int(xglog.FieldFailed, len(res.Failures)).
		Int("not_attempted", res.NotAttempted).
		Msg("resolution finished")
	return res, nil
}

// resolveOne runs the two dependent calls for a single stream.
func (r *Resolver) resolveOne(ctx context.Context, stream string) (string, Stage, error) {
	endpoint, err := r.endpoints.DataEndpoint(ctx, stream)
	if err != nil {
		return "", StageEndpoint, newStageError(StageEndpoint, stream, err)
	}
	url, err := r.sessions.SessionURL(ctx, endpoint, stream, r.cfg.Session)
	if err != nil {
		return "", StageSessionURL, newStageError(StageSessionURL, stream, err)
	}
	return url, "", nil
}

func (r *Resolver) logFailure(logger zerolog.Logger, stream string, stage Stage, err error) {
	metrics.IncResolveFailure(string(stage), kvs.Reason(err))

	msg := "could not get HLS session URL"
	if stage == StageEndpoint {
		msg = "could not get data endpoint"
	}
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "resolver.stream_failed").
		Str(xglog.FieldStreamName, stream).
		Str(xglog.FieldStage, string(stage)).
		Msg(msg)
}
