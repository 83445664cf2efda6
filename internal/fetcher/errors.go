package fetcher

import (
	"errors"
	"fmt"
)

// Transport errors.
// Any of these is fatal to the fetch in progress and is returned to the
// immediate caller; no request is retried.
var (
	// ErrInvalidBaseURL is returned when the configured origin is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrUnexpectedStatus is matched by every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	// Method is the request method.
	Method string

	// URL is the final URL of the request.
	URL string

	// StatusCode is the response status code.
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) hold for every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
