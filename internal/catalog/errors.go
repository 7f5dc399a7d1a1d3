package catalog

import (
	"errors"
	"fmt"
)

// FailureKind classifies a fetch failure for retry and telemetry decisions.
type FailureKind string

// Fetch failure classes. Timeout, ConnectionError and RateLimited are
// transient and eligible for retry; HTTPError is permanent unless the
// status is 429, which is reported as RateLimited instead.
const (
	FailureTimeout         FailureKind = "timeout"
	FailureConnectionError FailureKind = "connection_error"
	FailureHTTPError       FailureKind = "http_error"
	FailureRateLimited     FailureKind = "rate_limited"
)

// FetchError is a classified failure returned by a Fetcher.
type FetchError struct {
	Kind       FailureKind
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is worth another attempt.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FailureTimeout, FailureConnectionError, FailureRateLimited:
		return true
	default:
		return false
	}
}

// ExtractionError reports a response body that did not match the expected
// schema. It is non-fatal to the run: the page contributes zero records.
type ExtractionError struct {
	PageType PageType
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s page: %v", e.PageType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err wraps a retryable FetchError.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}

// IsExtractionError reports whether err wraps an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
