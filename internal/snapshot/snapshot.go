package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrClosed is returned by operations on a Snapshot that was already
// discarded or restored.
var ErrClosed = errors.New("snapshot already closed")

// Snapshot is the prior-state handle of one SyncRoot for one run.
//
// The run writes to the live directory and reads the shadow directory only
// through the handle: Has to look, Claim to move a validated file back into
// the live tree. At the end of the run the handle is either discarded
// (success) or restored (the root page could not be established).
type Snapshot struct {
	live   string
	shadow string

	// rotated is true when Rotate moved a live tree into the shadow.
	rotated bool

	// claimed lists the relative paths moved from shadow to live.
	claimed []string

	keepShadow bool
	closed     bool
	logger     *slog.Logger
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithKeepShadow leaves the shadow directory in place on Discard.
func WithKeepShadow(keep bool) Option {
	return func(s *Snapshot) {
		s.keepShadow = keep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshot) {
		s.logger = logger
	}
}

// Rotate moves the live tree aside into shadow and returns the handle.
//
// If live exists, any older shadow is deleted first (it is single
// generation) and live is renamed to shadow. If live does not exist this is
// the first run, or the previous one was interrupted after rotating: a
// leftover shadow is kept as is and stays readable through the handle.
//
// On return live does not exist.
func Rotate(live, shadow string, opts ...Option) (*Snapshot, error) {
	s := &Snapshot{live: live, shadow: shadow}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	info, err := os.Stat(live)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("no previous output to rotate", "live", live)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat %s: %w", live, err)
	case !info.IsDir():
		return nil, fmt.Errorf("failed to rotate %s: not a directory", live)
	}

	if err := os.RemoveAll(shadow); err != nil {
		return nil, fmt.Errorf("failed to remove old shadow %s: %w", shadow, err)
	}
	if err := os.MkdirAll(filepath.Dir(shadow), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create shadow parent: %w", err)
	}
	if err := os.Rename(live, shadow); err != nil {
		return nil, fmt.Errorf("failed to move %s to %s: %w", live, shadow, err)
	}

	s.rotated = true
	s.logger.Debug("rotated previous output", "live", live, "shadow", shadow)
	return s, nil
}

// None returns a handle with an empty shadow, for fetches outside the
// root bookkeeping. Has is always false and Discard and Restore do nothing.
func None(live string) *Snapshot {
	return &Snapshot{live: live, logger: slog.Default()}
}

// Live returns the live directory.
func (s *Snapshot) Live() string {
	return s.live
}

// Shadow returns the shadow directory, "" for None.
func (s *Snapshot) Shadow() string {
	return s.shadow
}

// Rotated reports whether Rotate moved a previous live tree aside.
func (s *Snapshot) Rotated() bool {
	return s.rotated
}

// Path returns the shadow path of rel, or "" when there is no shadow.
func (s *Snapshot) Path(rel string) string {
	if s.shadow == "" {
		return ""
	}
	return filepath.Join(s.shadow, rel)
}

// Has reports whether the shadow holds a regular file at rel.
func (s *Snapshot) Has(rel string) bool {
	if s.shadow == "" || s.closed {
		return false
	}
	info, err := os.Stat(s.Path(rel))
	return err == nil && info.Mode().IsRegular()
}

// Claim moves the shadow file at rel to the same place in the live tree,
// creating parent directories, and returns the live path.
func (s *Snapshot) Claim(rel string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	if s.shadow == "" {
		return "", fmt.Errorf("failed to claim %s: no shadow", rel)
	}

	dst := filepath.Join(s.live, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := os.Rename(s.Path(rel), dst); err != nil {
		return "", fmt.Errorf("failed to claim %s: %w", rel, err)
	}

	s.claimed = append(s.claimed, rel)
	return dst, nil
}

// Restore rolls the run back: claimed files go back to the shadow, the
// partial live tree is removed and the shadow becomes the live tree again.
// When Rotate did not move anything, the shadow stays where it is.
func (s *Snapshot) Restore() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	if s.shadow == "" {
		return nil
	}

	for _, rel := range s.claimed {
		src := filepath.Join(s.live, rel)
		dst := s.Path(rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
		if err := os.Rename(src, dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
	}

	if err := os.RemoveAll(s.live); err != nil {
		return fmt.Errorf("failed to remove partial output %s: %w", s.live, err)
	}
	if !s.rotated {
		return nil
	}
	if err := os.Rename(s.shadow, s.live); err != nil {
		return fmt.Errorf("failed to move %s back to %s: %w", s.shadow, s.live, err)
	}

	s.logger.Info("restored previous output", "live", s.live)
	return nil
}

// Discard ends a successful run by deleting the shadow, unless the handle
// was created with WithKeepShadow. Anything left there was not reachable
// in this run.
func (s *Snapshot) Discard() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	if s.shadow == "" || s.keepShadow {
		return nil
	}
	if err := os.RemoveAll(s.shadow); err != nil {
		return fmt.Errorf("failed to remove shadow %s: %w", s.shadow, err)
	}
	return nil
}
