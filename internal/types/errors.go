package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies pipeline failures. Retryable codes are eligible for
// backoff retry; every other code aborts the stage that raised it.
type ErrorCode string

const (
	// ErrRetryableService covers rate limits, timeouts and transient
	// unavailability of a remote service.
	ErrRetryableService ErrorCode = "RETRYABLE_SERVICE"
	// ErrFatalService covers authentication failures, malformed requests
	// and content-policy rejections. Never retried.
	ErrFatalService ErrorCode = "FATAL_SERVICE"
	// ErrMalformedDocument means the input PDF is unreadable. Fatal at
	// job start.
	ErrMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
	// ErrConfig covers invalid or missing configuration.
	ErrConfig ErrorCode = "CONFIG_ERROR"
	// ErrInternal covers unexpected local failures.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// PipeError is the error type produced by pipeline stages. Chunk, Stage and
// Page carry the failure locus that is surfaced to the caller on abort.
type PipeError struct {
	Code    ErrorCode  `json:"code"`
	Message string     `json:"message"`
	Chunk   int        `json:"chunk"`
	Stage   ChunkState `json:"stage,omitempty"`
	Page    int        `json:"page,omitempty"`
	Cause   error      `json:"-"`
}

// Error implements the error interface. The chunk, stage and page locus is
// included when set so an aborted job reports where it failed.
func (e *PipeError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Chunk >= 0 {
		fmt.Fprintf(&sb, " (chunk %d", e.Chunk)
		if e.Stage != "" {
			sb.WriteString(", ")
			sb.WriteString(string(e.Stage))
		}
		if e.Page > 0 {
			fmt.Fprintf(&sb, ", page %d", e.Page)
		}
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *PipeError) Unwrap() error { return e.Cause }

// Retryable reports whether the error may be retried with backoff.
func (e *PipeError) Retryable() bool { return e.Code == ErrRetryableService }

// NewPipeError creates a PipeError with the given code and message.
func NewPipeError(code ErrorCode, message string, cause error) *PipeError {
	return &PipeError{Code: code, Message: message, Chunk: -1, Cause: cause}
}

// WithLocus returns a copy of the error annotated with chunk and stage.
func (e *PipeError) WithLocus(chunk int, stage ChunkState) *PipeError {
	dup := *e
	dup.Chunk = chunk
	dup.Stage = stage
	return &dup
}

// IsRetryable reports whether err is (or wraps) a retryable service error.
func IsRetryable(err error) bool {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
