package llm

import (
	"errors"
	"fmt"
	"time"
)

// Completion failure categories. Use errors.Is to test for them.
var (
	// ErrUpstreamUnavailable covers transport errors, timeouts and non-2xx replies.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRateLimited is reported for HTTP 429 replies.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidResponseShape is terminal: a malformed success body is not retried.
	ErrInvalidResponseShape = errors.New("invalid response shape")
	// ErrRetriesExhausted is returned once every attempt has failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// UpstreamError describes a failed exchange with the provider.
type UpstreamError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("upstream unavailable: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream unavailable: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("upstream unavailable: %v", e.Err)
	}
	return "upstream unavailable"
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// RateLimitError is returned for HTTP 429. Wait is the provider-advertised
// delay when Signaled is true.
type RateLimitError struct {
	Message  string
	Wait     time.Duration
	Signaled bool
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ShapeError reports a success body that does not match the completion contract.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "invalid response shape: " + e.Reason }

func (e *ShapeError) Unwrap() error { return ErrInvalidResponseShape }

// RetriesExhaustedError carries the cause of the final failed attempt.
type RetriesExhaustedError struct {
	Last     error
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// outcome labels an attempt result for metrics and logs.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidResponseShape):
		return "invalid_shape"
	default:
		return "upstream_error"
	}
}
