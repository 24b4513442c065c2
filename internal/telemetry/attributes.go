// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Invocation attributes
	TriggerKey   = "faas.trigger"
	ColdStartKey = "faas.coldstart"
	RequestIDKey = "faas.execution"

	// Stream attributes
	StreamNameKey     = "kvs.stream_name"
	StreamPrefixKey   = "kvs.stream_prefix"
	StreamEndpointKey = "kvs.data_endpoint"
	PlaybackModeKey   = "kvs.playback_mode"

	// Resolution attributes
	ResolveListedKey   = "resolve.listed"
	ResolveResolvedKey = "resolve.resolved"
	ResolveFailedKey   = "resolve.failed"
	ResolvePolicyKey   = "resolve.failure_policy"
	ResolveStageKey    = "resolve.stage"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// InvocationAttributes creates span attributes for a single handler invocation.
func InvocationAttributes(trigger, requestID string, coldStart bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(TriggerKey, trigger),
		attribute.Bool(ColdStartKey, coldStart),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(RequestIDKey, requestID))
	}
	return attrs
}

// StreamAttributes creates stream-related span attributes. Empty values are omitted.
func StreamAttributes(name, endpoint string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if name != "" {
		attrs = append(attrs, attribute.String(StreamNameKey, name))
	}
	if endpoint != "" {
		attrs = append(attrs, attribute.String(StreamEndpointKey, endpoint))
	}
	return attrs
}

// ResolveAttributes summarises one resolution run.
func ResolveAttributes(prefix, policy string, listed, resolved, failed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StreamPrefixKey, prefix),
		attribute.String(ResolvePolicyKey, policy),
		attribute.Int(ResolveListedKey, listed),
		attribute.Int(ResolveResolvedKey, resolved),
		attribute.Int(ResolveFailedKey, failed),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
