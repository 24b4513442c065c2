// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"errors"
	"fmt"
)

// Stage names one remote step of a resolution.
type Stage string

const (
	StageList       Stage = "list_streams"
	StageEndpoint   Stage = "data_endpoint"
	StageSessionURL Stage = "session_url"
)

var (
	// ErrListStreams marks a failed listing call. It fails the whole request.
	ErrListStreams = errors.New("resolver: listing streams failed")
	// ErrDataEndpoint marks a failed data endpoint lookup for one stream.
	ErrDataEndpoint = errors.New("resolver: data endpoint lookup failed")
	// ErrSessionURL marks a failed HLS session URL request for one stream.
	ErrSessionURL = errors.New("resolver: session URL request failed")
)

func (s Stage) sentinel() error {
	switch s {
	case StageList:
		return ErrListStreams
	case StageEndpoint:
		return ErrDataEndpoint
	default:
		return ErrSessionURL
	}
}

// StageError attaches the failing stage and stream to a collaborator error.
// errors.Is matches both the stage sentinel and anything in Err's chain.
type StageError struct {
	Stage  Stage
	Stream string
	Err    error
}

func newStageError(stage Stage, stream string, err error) *StageError {
	return &StageError{Stage: stage, Stream: stream, Err: err}
}

func (e *StageError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("%v: %v", e.Stage.sentinel(), e.Err)
	}
	return fmt.Sprintf("%v for stream %q: %v", e.Stage.sentinel(), e.Stream, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}
