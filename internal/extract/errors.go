package extract

import "errors"

var (
	// ErrMissingTitle is returned when a page or section has no title element.
	ErrMissingTitle = errors.New("section title not found")

	// ErrNoSessKey is returned when no session key can be read from a page.
	ErrNoSessKey = errors.New("session key not found")

	// ErrFormNotFound is returned when an expected form is absent.
	ErrFormNotFound = errors.New("form not found")
)
