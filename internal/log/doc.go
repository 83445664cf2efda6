// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of campus credentials and session values
//   - Configurable log levels with verbose mode support
//   - Optional duplication into a size-rotated log file
//
// # Security Features
//
// The SecureHandler sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie)
//   - The password, the MoodleSession cookie and the login token
//   - sesskey and logintoken query parameters inside logged URLs and errors
//   - Values that look like bearer tokens or JWTs
//
// Content digests logged under etag, digest or hash are left intact.
//
// # Usage
//
//	logger, closer, err := log.New(os.Stderr, log.Options{
//	    Verbose: true,
//	    File:    "campus-fetch.log",
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	logger.Info("fetched", "url", "https://campus.test/login/logout.php?sesskey=abc")
//	// url=https://campus.test/login/logout.php?sesskey=***REDACTED***
package log
