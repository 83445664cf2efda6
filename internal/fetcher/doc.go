// Package fetcher provides the authenticated HTTP transport used by the
// sync engine.
//
// A Client resolves relative references against one configured origin,
// keeps the session in a cookie jar, and returns fully read responses that
// expose the final URL after redirects and every redirect hop on the way.
// The freshness checker relies on that history: some origins put the entity
// tag on the redirect rather than on the final response.
//
// # Errors
//
// Network failures, timeouts and non-2xx statuses are returned as errors
// (*StatusError for statuses). Nothing is retried here; retry policy, if
// any, belongs to callers.
package fetcher
