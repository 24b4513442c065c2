package kvs

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound    = errors.New("kvs: stream not found")
	ErrForbidden   = errors.New("kvs: access denied")
	ErrThrottled   = errors.New("kvs: request throttled")
	ErrUnsupported = errors.New("kvs: stream cannot serve HLS playback")
	ErrUnavailable = errors.New("kvs: service unreachable or transport failure")
	ErrBadResponse = errors.New("kvs: invalid or empty response")
	ErrTimeout     = errors.New("kvs: request timed out")
)

// KVSError wraps a sentinel with the failing operation and the underlying cause.
type KVSError struct {
	Sentinel  error
	Operation string
	Stream    string
	Code      string // AWS error code, when the service returned one
	Err       error
}

func (e *KVSError) Error() string {
	msg := fmt.Sprintf("kvs: %s: %v", e.Operation, e.Sentinel)
	if e.Stream != "" {
		msg = fmt.Sprintf("%s (stream %q)", msg, e.Stream)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *KVSError) Unwrap() error {
	return e.Sentinel
}

// Reason is a short, low-cardinality label for metrics.
func (e *KVSError) Reason() string {
	switch e.Sentinel {
	case ErrNotFound:
		return "not_found"
	case ErrForbidden:
		return "forbidden"
	case ErrThrottled:
		return "throttled"
	case ErrUnsupported:
		return "unsupported"
	case ErrBadResponse:
		return "bad_response"
	case ErrTimeout:
		return "timeout"
	default:
		return "unavailable"
	}
}

// Reason extracts the metric label from any error chain; "unknown" if none.
func Reason(err error) string {
	var kerr *KVSError
	if errors.As(err, &kerr) {
		return kerr.Reason()
	}
	return "unknown"
}

var codeSentinels = map[string]error{
	"ResourceNotFoundException":           ErrNotFound,
	"AccessDeniedException":               ErrForbidden,
	"NotAuthorizedException":              ErrForbidden,
	"UnrecognizedClientException":         ErrForbidden,
	"ExpiredTokenException":               ErrForbidden,
	"ClientLimitExceededException":        ErrThrottled,
	"LimitExceededException":              ErrThrottled,
	"ThrottlingException":                 ErrThrottled,
	"NoDataRetentionException":            ErrUnsupported,
	"UnsupportedStreamMediaTypeException": ErrUnsupported,
	"MissingCodecPrivateDataException":    ErrUnsupported,
	"InvalidCodecPrivateDataException":    ErrUnsupported,
	"InvalidArgumentException":            ErrBadResponse,
}

func wrapError(op, stream string, err error) error {
	if err == nil {
		return nil
	}
	kerr := &KVSError{Operation: op, Stream: stream, Err: err}

	var apiErr smithy.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kerr.Sentinel = ErrTimeout
	case errors.As(err, &apiErr):
		kerr.Code = apiErr.ErrorCode()
		if s, ok := codeSentinels[kerr.Code]; ok {
			kerr.Sentinel = s
		} else {
			kerr.Sentinel = ErrUnavailable
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		kerr.Sentinel = ErrTimeout
	default:
		kerr.Sentinel = ErrUnavailable
	}
	return kerr
}

func badResponse(op, stream, detail string) error {
	return &KVSError{Sentinel: ErrBadResponse, Operation: op, Stream: stream, Err: errors.New(detail)}
}
