package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConfiguration marks an invalid descriptor. Fatal, never retried.
	KindConfiguration Kind = "configuration"

	// KindTransport marks connectivity and timeout failures. Retryable.
	KindTransport Kind = "transport"

	// KindProtocol marks an error status from the remote endpoint.
	// Server-class (5xx) responses are retryable, client-class (4xx)
	// are not, with 429 as the retryable exception.
	KindProtocol Kind = "protocol"

	// KindDecoding marks a payload shape mismatch. Never retried.
	KindDecoding Kind = "decoding"

	// KindCacheStorage marks a durable tier failure. Absorbed inside
	// the cache layer; it never reaches request callers.
	KindCacheStorage Kind = "cache_storage"

	// KindCancelled marks a caller-initiated cancellation. Terminal.
	KindCancelled Kind = "cancelled"
)

// Sentinel errors returned by the pipeline.
var (
	// ErrRetryExhausted wraps the last failure once the retry budget
	// is spent.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrStageNotFound is returned when removing an unknown
	// interceptor stage.
	ErrStageNotFound = errors.New("interceptor stage not found")
)

// Error is a classified pipeline failure with request context.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Endpoint   string
	Attempt    int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("fetchpipe %s error", e.Kind)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Endpoint)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap supports errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same Kind.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return e.Kind == other.Kind
	}
	return false
}

// Retryable reports whether err represents a transient failure worth
// another dispatch attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case KindTransport:
			return true
		case KindProtocol:
			return pe.StatusCode >= 500 || pe.StatusCode == 429
		default:
			return false
		}
	}
	return false
}
