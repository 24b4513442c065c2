// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTrigger   = "trigger"
	FieldColdStart = "cold_start"

	// Stream fields
	FieldStreamName   = "stream_name"
	FieldStreamPrefix = "prefix"
	FieldStage        = "stage"
	FieldEndpoint     = "endpoint"
	FieldPolicy       = "failure_policy"

	// Result fields
	FieldListed   = "listed"
	FieldResolved = "resolved"
	FieldFailed   = "failed"
	FieldURLs     = "urls"
)
