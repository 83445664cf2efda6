package database

import "errors"

// ErrNotFound is returned by Open when the database must already exist but does not.
var ErrNotFound = errors.New("history database not found")
