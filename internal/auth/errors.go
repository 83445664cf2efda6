package auth

import "errors"

var (
	// ErrLoginFailed is returned when the site does not accept the credentials.
	ErrLoginFailed = errors.New("login failed")

	// ErrMissingCredentials is returned when a login method needs a username
	// and password that are not configured.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrNoIdentityProvider is returned when the login page offers no
	// identity provider button.
	ErrNoIdentityProvider = errors.New("login page has no identity provider")

	// ErrUnknownMethod is returned by New for an unsupported login method.
	ErrUnknownMethod = errors.New("unknown login method")
)
