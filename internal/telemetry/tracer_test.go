// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: "grpc",
	}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	}

	_, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}

	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{name: "always", rate: 1.0, want: "AlwaysOnSampler"},
		{name: "above one", rate: 3, want: "AlwaysOnSampler"},
		{name: "never", rate: 0, want: "AlwaysOffSampler"},
		{name: "ratio", rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := samplerFor(tt.rate).Description(); got != tt.want {
				t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
			}
		})
	}
}

func TestProvider_ShutdownAndFlushNoop(t *testing.T) {
	provider := &Provider{tp: nil}
	if err := provider.ForceFlush(context.Background()); err != nil {
		t.Errorf("Expected no error on noop flush, got: %v", err)
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}

	var nilProvider *Provider
	if err := nilProvider.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil provider shutdown to be a no-op, got: %v", err)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, ok := tp.Tracer("test").Start(context.Background(), "ok-span")
	EndSpan(ok, nil, "")

	_, failing := tp.Tracer("test").Start(context.Background(), "failing-span")
	EndSpan(failing, errors.New("boom"), "data_endpoint")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("ok-span should not carry an error status")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failing-span status = %v, want Error", spans[1].Status().Code)
	}
	if spans[1].Status().Description != "data_endpoint" {
		t.Errorf("failing-span description = %q", spans[1].Status().Description)
	}
	if len(spans[1].Events()) == 0 {
		t.Error("expected RecordError to add an exception event")
	}
}
