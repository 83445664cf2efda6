package catalog

import "errors"

var (
	// ErrServiceFailed is returned when the web service reports an error.
	ErrServiceFailed = errors.New("moodle web service call failed")

	// ErrEmptyResponse is returned when the web service answers with no result.
	ErrEmptyResponse = errors.New("moodle web service returned no result")
)
