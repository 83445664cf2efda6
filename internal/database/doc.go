// Package database provides the SQLite run history of campus-fetch.
//
// Every synchronization of a course is stored as one row of the runs table,
// holding its counters and the full report as JSON, plus one row per file
// it placed in the live tree. The history command reads it back.
//
// modernc.org/sqlite is used so the binary stays CGO-free. The single
// connection plus WAL mode lets history be read while a sync writes.
package database
