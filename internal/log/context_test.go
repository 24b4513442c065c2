// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			requestID: "req-456",
			want:      "req-456",
		},
		{
			name:      "empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromContextMissingValues(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if got := RequestIDFromContext(nil); got != "" {
		t.Errorf("expected empty request id for nil context, got %q", got)
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty correlation id, got %q", got)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "aws-req-1")
	ctx = ContextWithCorrelationID(ctx, "apigw-req-9")

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldRequestID] != "aws-req-1" {
		t.Errorf("request_id = %v, want aws-req-1", entry[FieldRequestID])
	}
	if entry[FieldCorrelationID] != "apigw-req-9" {
		t.Errorf("correlation_id = %v, want apigw-req-9", entry[FieldCorrelationID])
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := entry[FieldRequestID]; ok {
		t.Error("did not expect request_id field")
	}
}
