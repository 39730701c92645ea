package provider

import (
	"errors"
	"fmt"
)

// ConfigError means a required credential is missing. Fatal for the
// provider, non-fatal for the pipeline.
type ConfigError struct {
	Provider string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: no API credential configured", e.Provider)
}

// ResolutionError means no place identifier could be derived from the
// location reference.
type ResolutionError struct {
	Ref string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve a place identifier from %q", e.Ref)
}

// NoReviewsFoundError means the provider ran but produced zero reviews.
type NoReviewsFoundError struct {
	Provider string
	Ref      string
}

func (e *NoReviewsFoundError) Error() string {
	return fmt.Sprintf("provider %s: no reviews found for %q", e.Provider, e.Ref)
}

// UpstreamError wraps a non-OK response from a third-party service.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s: upstream failure (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TimeoutError means an async job never reached a terminal state within
// the polling budget.
type TimeoutError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: timed out after %d poll attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsNoReviews reports whether err is a zero-result outcome rather than a
// hard failure.
func IsNoReviews(err error) bool {
	var nf *NoReviewsFoundError
	return errors.As(err, &nf)
}

// IsConfig reports whether err is a missing-credential error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
