package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franciscod/campus-fetch/internal/dispatch"
	"github.com/franciscod/campus-fetch/internal/download"
	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/freshness"
	"github.com/franciscod/campus-fetch/internal/model"
	"github.com/franciscod/campus-fetch/internal/report"
	"github.com/franciscod/campus-fetch/internal/snapshot"
)

// traversal is the state of one run over one root. It is created by Sync
// or Fetch, used from a single goroutine, and dropped when the run ends.
type traversal struct {
	*Engine

	logger     *slog.Logger
	snap       *snapshot.Snapshot
	report     *model.SyncReport
	visited    *model.VisitSet
	dispatcher *dispatch.Dispatcher
	downloader *download.Handler

	// artifacts holds the artifact paths written in this run, relative to the live root.
	artifacts map[string]bool
}

func (e *Engine) newTraversal(snap *snapshot.Snapshot, r *model.SyncReport, rootID string, logger *slog.Logger) *traversal {
	t := &traversal{
		Engine:    e,
		logger:    logger,
		snap:      snap,
		report:    r,
		visited:   model.NewVisitSet(),
		artifacts: make(map[string]bool),
	}

	checker := freshness.NewChecker(e.client,
		freshness.WithHash(e.newHash),
		freshness.WithLogger(logger),
	)
	t.downloader = download.NewHandler(e.client, checker, snap, download.WithLogger(logger))

	t.dispatcher = dispatch.New(
		dispatch.Classifier{Base: e.client.Base(), RootID: rootID},
		t.visited,
		t.handlers(),
		dispatch.WithLogger(logger),
	)
	return t
}

// finish copies the dispatcher counters into the report and stamps it.
func (t *traversal) finish() {
	t.report.Duplicates = t.dispatcher.Duplicates()
	t.report.Unhandled = t.dispatcher.Unhandled()
	t.report.FinishedAt = time.Now()
}

// visitRoot fetches and processes the root page. Any error returned here
// means the root could not be established.
func (t *traversal) visitRoot(ctx context.Context, ref string) error {
	rootURL, err := t.client.Resolve(ref)
	if err != nil {
		return err
	}
	t.visited.Add(model.PageKey(rootURL))

	resp, err := t.client.Get(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("failed to fetch root page: %w", err)
	}

	if strings.Contains(resp.FinalURL, "/login/index.php") {
		return fmt.Errorf("%w: redirected to %s", ErrNotAuthenticated, resp.FinalURL)
	}
	if strings.Contains(resp.FinalURL, "policy") {
		if t.policy == nil {
			return fmt.Errorf("%w: %s", ErrPolicyPending, resp.FinalURL)
		}
		t.logger.Info("accepting site policy", "url", resp.FinalURL)
		resp, err = t.policy.Agree(ctx, resp)
		if err != nil {
			return fmt.Errorf("failed to accept site policy: %w", err)
		}
	}

	t.visited.Add(model.PageKey(resp.FinalURL))
	return t.processPage(ctx, resp)
}

// visitPage fetches a page whose key the caller already claimed. A page
// that redirects to one already visited is skipped.
func (t *traversal) visitPage(ctx context.Context, pageURL string) error {
	resp, err := t.client.Get(ctx, pageURL)
	if err != nil {
		return err
	}
	if !t.claimFinal(pageURL, resp.FinalURL) {
		return nil
	}
	return t.processPage(ctx, resp)
}

// claimFinal claims the page key of finalURL when a redirect changed the
// address, and reports whether processing should continue.
func (t *traversal) claimFinal(requested, finalURL string) bool {
	if model.CanonicalURL(requested) == model.CanonicalURL(finalURL) {
		return true
	}
	if t.visited.Add(model.PageKey(finalURL)) {
		return true
	}
	t.logger.Debug("redirected to a page already visited", "url", requested, "final", finalURL)
	return false
}

// processPage expands the navigation of a course view depth-first, then
// writes and dispatches its own sections. Navigation children are
// processed before the page content, and a failing child is recorded
// without stopping its siblings.
func (t *traversal) processPage(ctx context.Context, resp *fetcher.Response) error {
	markup, err := t.parse(resp)
	if err != nil {
		return err
	}
	title := markup.Title()

	for _, link := range markup.Navigation() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !t.client.SameOrigin(link.URL) || ignored(t.ignorePatterns, link.URL) {
			continue
		}
		if !t.visited.Add(model.PageKey(link.URL)) {
			continue
		}
		if err := t.visitPage(ctx, link.URL); err != nil {
			t.failure(link.URL, title, err)
		}
	}

	if markup.Unavailable() {
		t.logger.Info("skipping unavailable page", "url", resp.FinalURL, "title", title)
		return nil
	}

	sections, err := markup.Sections()
	if err != nil {
		return err
	}
	for _, section := range sections {
		t.processSection(ctx, resp.FinalURL, title, section, "")
	}
	return nil
}

// processSection writes the artifact of section, when its text is not
// empty, and dispatches its links in document order. dir, when set, is
// where the link handlers write.
func (t *traversal) processSection(ctx context.Context, pageURL, pageTitle string, section model.Section, dir string) {
	body := t.toText(section.HTML, pageURL)
	if body != "" {
		if err := t.writeArtifact(section.Title, pageURL, body); err != nil {
			t.failure(pageURL, pageTitle, err)
		}
	}
	t.dispatchAll(ctx, section.Links, section.Title, pageTitle, dir)
}

// dispatchAll routes links through the dispatcher, recording each failure.
func (t *traversal) dispatchAll(ctx context.Context, links []model.ResourceLink, sectionTitle, pageTitle, dir string) {
	for _, link := range links {
		if ctx.Err() != nil {
			return
		}
		if ignored(t.ignorePatterns, link.URL) {
			t.logger.Debug("ignoring link", "url", link.URL, "page", pageTitle)
			continue
		}
		req := dispatch.Request{Link: link, Section: sectionTitle, Page: pageTitle, Dir: dir}
		if err := t.dispatcher.Dispatch(ctx, req); err != nil {
			t.failure(link.URL, pageTitle, err)
		}
	}
}

// toText converts a fragment, returning "" when nothing but whitespace remains.
func (t *traversal) toText(fragment, pageURL string) string {
	if fragment == "" {
		return ""
	}
	text := t.extractor.ToText(fragment, extract.TextOptions{BulletMark: t.bulletMark, BaseURL: pageURL})
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

// writeArtifact writes <live>/<slug(title)>.md.
func (t *traversal) writeArtifact(title, source, body string) error {
	return t.writePage("", title, source, body)
}

// writePage writes a page artifact below dir. The name gets the first free
// -N suffix when its path was already written in this run.
func (t *traversal) writePage(dir, title, source, body string) error {
	slug := model.Slugify(title)
	if slug == "" {
		slug = "page"
	}

	rel := filepath.Join(dir, slug+".md")
	for n := 2; t.artifacts[rel]; n++ {
		rel = filepath.Join(dir, slug+"-"+strconv.Itoa(n)+".md")
	}
	t.artifacts[rel] = true

	dst := filepath.Join(t.snap.Live(), rel)
	if err := report.WritePage(dst, report.Page{Title: title, Source: source, Body: body}); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", rel, err)
	}
	t.report.Artifacts++
	t.logger.Debug("wrote artifact", "path", rel, "source", source)
	return nil
}

// failure records a failed link and logs it with its page.
func (t *traversal) failure(linkURL, pageTitle string, err error) {
	t.report.AddFailure(linkURL, pageTitle, err)
	t.logger.Warn("failed to process link", "url", linkURL, "page", pageTitle, "error", err)
}
