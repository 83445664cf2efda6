package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults of the log file.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Options configure the process logger built by New.
type Options struct {
	// Verbose sets the level to Debug instead of Warn.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// File duplicates the output into a rotated log file when set.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation. Zero values
	// use the defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewRotatingFile opens path for appending, rotating it by size.
// The parent directory is created if needed.
func NewRotatingFile(path string, opts Options) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	if opts.MaxSizeMB > 0 {
		rotating.MaxSize = opts.MaxSizeMB
	}
	if opts.MaxBackups > 0 {
		rotating.MaxBackups = opts.MaxBackups
	}
	if opts.MaxAgeDays > 0 {
		rotating.MaxAge = opts.MaxAgeDays
	}
	return rotating, nil
}

// New builds the secure process logger writing to console and, when
// opts.File is set, to the rotated log file. The returned closer closes
// the file.
func New(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	w := console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file, err := NewRotatingFile(opts.File, opts)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(console, file)
		closer = file
	}

	if opts.JSON {
		return NewSecureJSONLogger(w, opts.Verbose), closer, nil
	}
	return NewSecureLogger(w, opts.Verbose), closer, nil
}
