// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the resolver over API Gateway (Lambda) and plain HTTP.
package api

import (
	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// MessageOK is the message of every successful body, partial or not.
const MessageOK = "ok"

// Body is the JSON payload returned to callers.
type Body struct {
	Message string   `json:"message"`
	Streams []string `json:"streams"`

	// Set only when partial reporting is enabled.
	Partial      bool          `json:"partial,omitempty"`
	NotAttempted int           `json:"not_attempted,omitempty"`
	Failures     []FailureBody `json:"failures,omitempty"`
}

// FailureBody names a stream that could not be resolved. Error details stay server-side.
type FailureBody struct {
	Stream string `json:"stream"`
	Stage  string `json:"stage"`
}

// NewBody builds the response body for res.
func NewBody(res resolver.Result, reportPartial bool) Body {
	streams := res.URLs
	if streams == nil {
		streams = []string{}
	}
	body := Body{Message: MessageOK, Streams: streams}
	if !reportPartial || !res.Partial() {
		return body
	}

	body.Partial = true
	body.NotAttempted = res.NotAttempted
	body.Failures = make([]FailureBody, 0, len(res.Failures))
	for _, f := range res.Failures {
		body.Failures = append(body.Failures, FailureBody{Stream: f.Stream, Stage: string(f.Stage)})
	}
	return body
}

// CORSHeaders returns the headers sent on every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Headers": "*",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "*",
		"Content-Type":                 "application/json",
	}
}
