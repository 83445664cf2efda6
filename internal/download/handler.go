package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/freshness"
	"github.com/franciscod/campus-fetch/internal/model"
	"github.com/franciscod/campus-fetch/internal/snapshot"
)

// Fetcher is the transport the handler downloads through.
type Fetcher interface {
	Head(ctx context.Context, ref string) (*fetcher.Response, error)
	Get(ctx context.Context, ref string) (*fetcher.Response, error)
}

// Request is one file to place in the live tree.
type Request struct {
	// URL is the file location.
	URL string

	// DeclaredName is the file name when known before fetching. Only
	// declared names can be reclaimed from the shadow.
	DeclaredName string

	// Subdir is the directory relative to the live root.
	Subdir string

	// LinkText is the anchor text, used to name files nothing else names.
	LinkText string
}

// Result describes where a download ended up.
type Result struct {
	// Path is the live path of the file.
	Path string

	// Reclaimed is true when the file was moved from the shadow instead of fetched.
	Reclaimed bool

	// ETag is the normalized freshness token, if the origin sent one.
	ETag string
}

// Record converts a result into a report entry for url.
func (r Result) Record(url string) model.FileRecord {
	return model.FileRecord{URL: url, Path: r.Path, ETag: r.ETag, Reclaimed: r.Reclaimed}
}

// Handler downloads files into the live tree of one snapshot, reusing
// shadow copies that the freshness checker proves unchanged.
type Handler struct {
	client  Fetcher
	checker *freshness.Checker
	snap    *snapshot.Snapshot
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler writing below snap.Live().
func NewHandler(client Fetcher, checker *freshness.Checker, snap *snapshot.Snapshot, opts ...Option) *Handler {
	h := &Handler{
		client:  client,
		checker: checker,
		snap:    snap,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.checker == nil {
		h.checker = freshness.NewChecker(client, freshness.WithLogger(h.logger))
	}
	return h
}

// Download places req.URL in the live tree.
//
// With a declared name the shadow copy of that name is validated first; on
// a token match it is moved into place and the body is never fetched.
// Otherwise the body is fetched, named (declared name, else
// ResolveFilename) and written atomically.
func (h *Handler) Download(ctx context.Context, req Request) (Result, error) {
	declared := SafeName(req.DeclaredName)
	if declared != "" {
		rel := filepath.Join(req.Subdir, declared)
		token, ok, err := h.checker.Validate(ctx, req.URL, h.snap.Path(rel))
		if err != nil {
			return Result{}, fmt.Errorf("failed to validate %s: %w", rel, err)
		}
		if ok {
			dst, err := h.snap.Claim(rel)
			if err != nil {
				return Result{}, err
			}
			h.logger.Debug("reclaimed file from shadow", "url", req.URL, "path", dst)
			return Result{Path: dst, Reclaimed: true, ETag: token}, nil
		}
	}

	resp, err := h.client.Get(ctx, req.URL)
	if err != nil {
		return Result{}, err
	}

	name := declared
	if name == "" {
		name = ResolveFilename(resp.Header, resp.FinalURL, req.LinkText, resp.ContentType())
	}

	dst, err := AvailablePath(filepath.Join(h.snap.Live(), req.Subdir, name))
	if err != nil {
		return Result{}, err
	}
	if err := WriteFile(dst, resp.Body); err != nil {
		return Result{}, err
	}

	token := freshness.TokenOf(resp)
	if token != "" && !strings.EqualFold(freshness.Digest(resp.Body, h.checker.Hash()), token) {
		h.logger.Debug("downloaded content does not match ETag", "url", req.URL, "etag", token)
	}

	h.logger.Debug("downloaded file", "url", req.URL, "path", dst, "bytes", len(resp.Body))
	return Result{Path: dst, ETag: token}, nil
}

// WriteFile writes data to path through a temporary file in the same
// directory, creating parent directories. A failed write never leaves a
// truncated file under the final name.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".campus-fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // downloaded files are meant to be readable
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// AvailablePath returns path, or path with a -2, -3... suffix before the
// extension when a file of that name was already written in this run.
func AvailablePath(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 2; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
}
