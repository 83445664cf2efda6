package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/franciscod/campus-fetch/internal/dispatch"
	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/freshness"
	"github.com/franciscod/campus-fetch/internal/model"
	"github.com/franciscod/campus-fetch/internal/snapshot"
)

// Default engine settings.
const (
	// DefaultOutputDir is where live course trees are written.
	DefaultOutputDir = "downloads"

	// DefaultShadowDir holds the previous generation of every course tree.
	DefaultShadowDir = ".old"

	// DefaultRootPath addresses a course by id, relative to the site origin.
	DefaultRootPath = "course/view.php?id=%s"

	// DefaultBulletMark is the list marker used in page artifacts.
	DefaultBulletMark = "-"
)

// Fetcher is the authenticated transport the engine crawls through.
// *fetcher.Client implements it.
type Fetcher interface {
	Head(ctx context.Context, ref string) (*fetcher.Response, error)
	Get(ctx context.Context, ref string) (*fetcher.Response, error)
	Resolve(ref string) (string, error)
	SameOrigin(rawURL string) bool
	Base() *url.URL
}

// Extractor turns page bodies into structured markup and fragments into text.
// *extract.Moodle implements it.
type Extractor interface {
	Parse(body []byte, pageURL string) (extract.Markup, error)
	ToText(fragment string, opts extract.TextOptions) string
}

// PolicyAgreer accepts a site policy page and returns the page the site
// serves afterwards.
type PolicyAgreer interface {
	Agree(ctx context.Context, resp *fetcher.Response) (*fetcher.Response, error)
}

// Engine synchronizes courses into a local directory tree.
//
// An Engine holds configuration only. Every Sync builds its own traversal,
// so one Engine may serve several roots in parallel as long as no two of
// them share an output directory.
type Engine struct {
	client    Fetcher
	extractor Extractor
	policy    PolicyAgreer
	logger    *slog.Logger

	outputDir      string
	shadowDir      string
	rootPath       string
	bulletMark     string
	forums         bool
	keepShadow     bool
	ignorePatterns []string
	newHash        freshness.HashFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutputDir sets the base directory of live course trees.
func WithOutputDir(dir string) Option {
	return func(e *Engine) {
		e.outputDir = dir
	}
}

// WithShadowDir sets the base directory of shadow course trees.
func WithShadowDir(dir string) Option {
	return func(e *Engine) {
		e.shadowDir = dir
	}
}

// WithForums enables forum and discussion handling.
func WithForums(enabled bool) Option {
	return func(e *Engine) {
		e.forums = enabled
	}
}

// WithKeepShadow keeps the shadow tree after a successful run instead of
// deleting it.
func WithKeepShadow(keep bool) Option {
	return func(e *Engine) {
		e.keepShadow = keep
	}
}

// WithBulletMark sets the unordered list marker of page artifacts.
func WithBulletMark(mark string) Option {
	return func(e *Engine) {
		e.bulletMark = mark
	}
}

// WithRootPath sets the fmt pattern that turns a course id into its page path.
func WithRootPath(pattern string) Option {
	return func(e *Engine) {
		e.rootPath = pattern
	}
}

// WithIgnorePatterns sets URL path patterns whose links are never handled.
// Patterns use glob syntax (e.g., "/mod/forum/*", "*.mp4").
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.ignorePatterns = patterns
	}
}

// WithHash sets the digest compared against freshness tokens.
func WithHash(newHash freshness.HashFunc) Option {
	return func(e *Engine) {
		e.newHash = newHash
	}
}

// WithPolicyAgreer sets the collaborator that accepts site policies.
func WithPolicyAgreer(agreer PolicyAgreer) Option {
	return func(e *Engine) {
		e.policy = agreer
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine crawling through client.
func NewEngine(client Fetcher, extractor Extractor, opts ...Option) *Engine {
	e := &Engine{
		client:     client,
		extractor:  extractor,
		outputDir:  DefaultOutputDir,
		shadowDir:  DefaultShadowDir,
		rootPath:   DefaultRootPath,
		bulletMark: DefaultBulletMark,
		newHash:    freshness.DefaultHash,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.extractor == nil {
		e.extractor = extract.NewMoodle()
	}

	return e
}

// LivePath returns the output directory of root.
func (e *Engine) LivePath(root model.SyncRoot) string {
	return filepath.Join(e.outputDir, root.Slug())
}

// ShadowPath returns the shadow directory of root.
func (e *Engine) ShadowPath(root model.SyncRoot) string {
	return filepath.Join(e.shadowDir, root.Slug())
}

// Sync performs one full synchronization of root.
//
// The previous output is rotated into the shadow tree, the course is
// crawled into a fresh live tree, and the shadow is discarded. If the root
// page cannot be established, or ctx ends before the crawl completes, the
// previous output is restored and the error is returned along with the
// report. Failures below the root are recorded in the report and do not
// fail the run.
func (e *Engine) Sync(ctx context.Context, root model.SyncRoot) (*model.SyncReport, error) {
	report := model.NewSyncReport(root)
	report.OutputDir = e.LivePath(root)

	logger := e.logger.With("course", root.Name, "id", root.ID)

	if err := e.checkPaths(root); err != nil {
		return e.fail(report, err)
	}

	snap, err := snapshot.Rotate(report.OutputDir, e.ShadowPath(root),
		snapshot.WithKeepShadow(e.keepShadow),
		snapshot.WithLogger(logger),
	)
	if err != nil {
		return e.fail(report, err)
	}

	t := e.newTraversal(snap, report, root.ID, logger)

	err = t.visitRoot(ctx, fmt.Sprintf(e.rootPath, root.ID))
	if err == nil {
		err = ctx.Err()
	}
	t.finish()

	if err != nil {
		if rerr := snap.Restore(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore previous output: %w", rerr))
		}
		logger.Error("course sync failed", "error", err)
		return e.fail(report, err)
	}

	if err := snap.Discard(); err != nil {
		logger.Warn("failed to discard shadow tree", "shadow", snap.Shadow(), "error", err)
	}

	logger.Info("course synchronized",
		"pages", report.PagesVisited,
		"downloaded", report.Downloaded,
		"reclaimed", report.Reclaimed,
		"failures", len(report.Failures),
	)
	return report, nil
}

// Fetch processes one ad-hoc URL into outDir, outside the rotation of any
// course. A course page is crawled like a root; anything else is handled
// once by its resource handler and written directly below outDir.
func (e *Engine) Fetch(ctx context.Context, rawURL, outDir string) (*model.SyncReport, error) {
	abs, err := e.client.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	root := model.SyncRoot{ID: courseID(abs), Name: filepath.Base(outDir)}
	report := model.NewSyncReport(root)
	report.OutputDir = outDir

	t := e.newTraversal(snapshot.None(outDir), report, root.ID, e.logger.With("url", abs))
	defer t.finish()

	kind := t.dispatcher.Classify(abs)
	switch kind {
	case model.KindSubPage:
		err = t.visitRoot(ctx, abs)
	case model.KindUnhandled:
		err = fmt.Errorf("%w: %s", ErrUnhandledURL, abs)
	default:
		err = t.dispatcher.Dispatch(ctx, dispatch.Request{
			Link: model.ResourceLink{URL: abs, Kind: kind},
			Dir:  ".",
		})
	}
	if err != nil {
		return e.fail(report, err)
	}
	return report, nil
}

// checkPaths refuses a root whose live or shadow directory is not strictly
// below the output or shadow tree, since rotation removes both.
func (e *Engine) checkPaths(root model.SyncRoot) error {
	for _, p := range []struct{ tree, dir string }{
		{e.outputDir, e.LivePath(root)},
		{e.shadowDir, e.ShadowPath(root)},
	} {
		rel, err := filepath.Rel(filepath.Clean(p.tree), p.dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s is not below %s", ErrUnsafePath, p.dir, p.tree)
		}
	}
	return nil
}

// fail stamps report as failed at the root.
func (e *Engine) fail(report *model.SyncReport, err error) (*model.SyncReport, error) {
	report.SetError(err)
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	return report, err
}

// courseID returns the id of a course/view.php URL, or "" for any other URL.
func courseID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || path.Base(u.Path) != "view.php" || path.Base(path.Dir(u.Path)) != "course" {
		return ""
	}
	return u.Query().Get("id")
}
