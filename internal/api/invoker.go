// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/kvs-playback/internal/app"
	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/metrics"
	"github.com/ManuGH/kvs-playback/internal/resolver"
	"github.com/ManuGH/kvs-playback/internal/telemetry"
)

// Triggers label where an invocation came from.
const (
	TriggerLambda = "lambda"
	TriggerHTTP   = "http"
	TriggerCLI    = "cli"
)

// Span error types for failures that did not come from a resolver stage.
const (
	errTypeClientInit = "client_init"
	errTypeEncode     = "encode"
	errTypeInternal   = "internal"
)

// PlaybackService resolves playback URLs with the currently active settings.
type PlaybackService interface {
	Resolve(ctx context.Context) (resolver.Result, error)
	ReportPartial() bool
}

// Response is a transport-neutral handler result.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Invoker runs one resolution per call and renders the response. All
// transports share it so cold start and metrics are counted once per process.
type Invoker struct {
	svc    PlaybackService
	warm   atomic.Bool
	tracer trace.Tracer
}

// NewInvoker wraps svc.
func NewInvoker(svc PlaybackService) *Invoker {
	return &Invoker{svc: svc, tracer: telemetry.Tracer("handler")}
}

// Invoke resolves and renders. A non-nil error means the listing step failed
// and no body should be sent; the transport decides how to surface it.
func (i *Invoker) Invoke(ctx context.Context, trigger string) (resp Response, err error) {
	coldStart := !i.warm.Swap(true)
	metrics.IncInvocation(trigger, coldStart)

	ctx, span := i.tracer.Start(ctx, "handler.Invoke",
		trace.WithAttributes(telemetry.InvocationAttributes(trigger, xglog.RequestIDFromContext(ctx), coldStart)...))
	errType := ""
	defer func() {
		if err != nil && errType == "" {
			errType = errorType(err)
		}
		telemetry.EndSpan(span, err, errType)
	}()

	logger := xglog.WithComponentFromContext(ctx, "handler")
	logger.Info().
		Str(xglog.FieldEvent, "handler.invoked").
		Str(xglog.FieldTrigger, trigger).
		Bool(xglog.FieldColdStart, coldStart).
		Msg("resolving playback URLs")

	res, err := i.svc.Resolve(ctx)
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "handler.failed").
			Msg("resolution failed")
		return Response{}, err
	}

	payload, err := json.Marshal(NewBody(res, i.svc.ReportPartial()))
	if err != nil {
		errType = errTypeEncode
		return Response{}, fmt.Errorf("encode body: %w", err)
	}

	logger.Debug().
		Str(xglog.FieldEvent, "handler.responded").
		Strs(xglog.FieldURLs, res.URLs).
		Msg("playback URLs resolved")

	return Response{
		StatusCode: http.StatusOK,
		Headers:    CORSHeaders(),
		Body:       string(payload),
	}, nil
}

// errorType names the failing step for span attributes.
func errorType(err error) string {
	var stageErr *resolver.StageError
	switch {
	case errors.As(err, &stageErr):
		return string(stageErr.Stage)
	case errors.Is(err, app.ErrClientInit):
		return errTypeClientInit
	default:
		return errTypeInternal
	}
}
