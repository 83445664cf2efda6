package crawler

import "errors"

var (
	// ErrNotAuthenticated is returned when the root page redirects to the login form.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrPolicyPending is returned when the site asks to accept a policy and
	// no PolicyAgreer is configured.
	ErrPolicyPending = errors.New("site policy must be accepted")

	// ErrNotHTML is returned when a page link serves something other than HTML.
	ErrNotHTML = errors.New("page is not HTML")

	// ErrNoShortcutTarget is returned when a URL module page shows no destination.
	ErrNoShortcutTarget = errors.New("shortcut has no destination")

	// ErrUnhandledURL is returned by Fetch for a URL no handler recognizes.
	ErrUnhandledURL = errors.New("no handler for URL")

	// ErrUnsafePath is returned when a course directory would not lie below
	// its output or shadow tree.
	ErrUnsafePath = errors.New("course directory escapes its tree")
)
