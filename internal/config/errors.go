package config

import "errors"

// Configuration validation errors, returned by Config.Validate and the
// loader so callers can use errors.Is.
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoBaseURL is returned when the campus URL is empty.
	ErrNoBaseURL = errors.New("no campus URL configured")

	// ErrNoCourse is returned when sync has no course to work on.
	ErrNoCourse = errors.New("no course specified: add courses to the config file or pass id:name arguments")

	// ErrInvalidCourse is returned for a course argument that is not "id" or "id:name".
	ErrInvalidCourse = errors.New("invalid course: expected numeric id or id:name")

	// ErrInvalidLoginMethod is returned for a login method other than form, idex or none.
	ErrInvalidLoginMethod = errors.New("invalid login method: must be form, idex or none")

	// ErrNoSessionCookie is returned when login is disabled without a session cookie.
	ErrNoSessionCookie = errors.New("login method none requires a session cookie")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidReportFormat is returned for a report format other than text, markdown or json.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, markdown or json")

	// ErrSameOutputAndShadow is returned when the live and shadow trees coincide.
	ErrSameOutputAndShadow = errors.New("output and shadow directories must differ")

	// ErrNestedOutputAndShadow is returned when one tree lies inside the other.
	ErrNestedOutputAndShadow = errors.New("output and shadow directories must not be nested")

	// ErrDuplicateCourse is returned when two courses share an id or an output directory.
	ErrDuplicateCourse = errors.New("duplicate course")

	// ErrInvalidBulletMark is returned for a list marker other than -, + or *.
	ErrInvalidBulletMark = errors.New("invalid bullet mark: must be -, + or *")
)
