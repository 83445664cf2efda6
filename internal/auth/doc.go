// Package auth establishes the campus session before any course is synced.
//
// Three methods are supported:
//   - FormLogin posts the Moodle login form, including its logintoken
//   - IdentityProviderLogin goes through the external identity provider
//     linked from the login page
//   - NoLogin trusts a session cookie configured on the client
//
// Sessions live in the cookie jar of the fetcher.Client, so the same client
// must be used for login and for crawling.
//
// PolicyAgreer accepts the site policy page Moodle shows before the first
// course view of an account.
package auth
