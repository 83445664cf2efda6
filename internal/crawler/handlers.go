package crawler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franciscod/campus-fetch/internal/dispatch"
	"github.com/franciscod/campus-fetch/internal/download"
	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/model"
)

// handlers builds the dispatch table of the run.
func (t *traversal) handlers() dispatch.Table {
	table := dispatch.Table{
		model.KindFile:     t.handleFile,
		model.KindResource: t.handleResource,
		model.KindShortcut: t.handleShortcut,
		model.KindFolder:   t.handleFolder,
		model.KindPage:     t.handlePage,
		model.KindSubPage:  t.handleSubPage,
	}
	if t.forums {
		table[model.KindForum] = t.handleForum
		table[model.KindDiscussion] = t.handleDiscussion
	} else {
		table[model.KindForum] = t.skipForum
		table[model.KindDiscussion] = t.skipForum
	}
	return table
}

// filesDir is the directory downloads of req land in.
func filesDir(req dispatch.Request) string {
	if req.Dir != "" {
		return req.Dir
	}
	return "files_" + sectionSlug(req.Section)
}

// forumDir is the directory discussion artifacts of req land in.
func forumDir(req dispatch.Request) string {
	if req.Dir != "" {
		return req.Dir
	}
	return "forum_" + sectionSlug(req.Section)
}

func sectionSlug(title string) string {
	if s := model.Slugify(title); s != "" {
		return s
	}
	return "general"
}

// handleFile downloads a pluginfile.php link. The URL base name, when
// plausible, is declared so the shadow copy can be reclaimed.
func (t *traversal) handleFile(ctx context.Context, req dispatch.Request) error {
	return t.download(ctx, download.Request{
		URL:          req.Link.URL,
		DeclaredName: download.URLName(req.Link.URL),
		Subdir:       filesDir(req),
		LinkText:     req.Link.Text,
	})
}

// handleResource resolves a resource module to its file. The view URL is
// probed with HEAD first: a non-HTML answer is the file itself, otherwise
// the view page names the file.
func (t *traversal) handleResource(ctx context.Context, req dispatch.Request) error {
	dl := download.Request{
		URL:      req.Link.URL,
		Subdir:   filesDir(req),
		LinkText: req.Link.Text,
	}

	head, err := t.client.Head(ctx, req.Link.URL)
	if err != nil {
		return err
	}
	if !head.IsHTML() {
		dl.DeclaredName = download.DispositionName(head.Header.Get("Content-Disposition"))
		if dl.DeclaredName == "" {
			dl.DeclaredName = download.URLName(head.FinalURL)
		}
		return t.download(ctx, dl)
	}

	_, markup, err := t.fetchPage(ctx, req.Link.URL)
	if err != nil {
		return err
	}
	target, ok := markup.ResourceTarget()
	if !ok {
		t.logger.Debug("resource page names no file, downloading it raw", "url", req.Link.URL)
		return t.download(ctx, dl)
	}
	if !t.visited.Add(model.KeyFor(model.KindFile, target)) {
		return nil
	}

	dl.URL = target
	dl.DeclaredName = download.URLName(target)
	return t.download(ctx, dl)
}

// handleShortcut records the destination of a URL module as an
// InternetShortcut file named after the link text.
func (t *traversal) handleShortcut(ctx context.Context, req dispatch.Request) error {
	head, err := t.client.Head(ctx, req.Link.URL)
	if err != nil {
		return err
	}

	target := head.FinalURL
	if t.client.SameOrigin(target) {
		_, markup, err := t.fetchPage(ctx, req.Link.URL)
		if err != nil {
			return err
		}
		var ok bool
		if target, ok = markup.ShortcutTarget(); !ok {
			return fmt.Errorf("%w: %s", ErrNoShortcutTarget, req.Link.URL)
		}
	}

	name := model.Slugify(req.Link.Text)
	if name == "" {
		name = "enlace"
	}
	dst, err := download.AvailablePath(filepath.Join(t.snap.Live(), filesDir(req), name+".url"))
	if err != nil {
		return err
	}
	if err := download.WriteFile(dst, []byte(shortcutFile(target))); err != nil {
		return err
	}

	t.report.Shortcuts++
	t.logger.Debug("recorded shortcut", "url", req.Link.URL, "target", target, "path", dst)
	return nil
}

// shortcutFile renders an InternetShortcut file.
func shortcutFile(target string) string {
	return "[InternetShortcut]\r\nURL=" + target + "\r\n"
}

// handleFolder dispatches every file listed by a folder module into a
// directory named after the folder.
func (t *traversal) handleFolder(ctx context.Context, req dispatch.Request) error {
	_, markup, err := t.fetchPage(ctx, req.Link.URL)
	if err != nil {
		return err
	}

	folder := model.Slugify(req.Link.Text)
	if folder == "" {
		folder = model.Slugify(markup.Title())
	}
	dir := filepath.Join(filesDir(req), folder)

	files := markup.FolderFiles()
	for i := range files {
		files[i].Kind = model.KindFile
	}
	t.dispatchAll(ctx, files, req.Section, req.Page, dir)
	return nil
}

// handleForum dispatches every discussion of a forum module.
func (t *traversal) handleForum(ctx context.Context, req dispatch.Request) error {
	_, markup, err := t.fetchPage(ctx, req.Link.URL)
	if err != nil {
		return err
	}

	threads := markup.Discussions()
	for i := range threads {
		threads[i].Kind = model.KindDiscussion
	}
	t.dispatchAll(ctx, threads, req.Section, markup.Title(), forumDir(req))
	return nil
}

// handleDiscussion writes a discussion as one artifact with a second-level
// block per post, then dispatches the links found in the posts.
func (t *traversal) handleDiscussion(ctx context.Context, req dispatch.Request) error {
	resp, markup, err := t.fetchPage(ctx, req.Link.URL)
	if err != nil {
		return err
	}

	title, posts := markup.Thread()
	if title == "" {
		title = req.Link.Text
	}

	var body strings.Builder
	links := make([]model.ResourceLink, 0)
	for _, post := range posts {
		text := t.toText(post.HTML, resp.FinalURL)
		if text == "" && post.Title == "" {
			continue
		}
		body.WriteString("## " + post.Title + "\n\n")
		body.WriteString(text)
		body.WriteString("\n")
		links = append(links, post.Links...)
	}

	dir := forumDir(req)
	if body.Len() > 0 {
		if err := t.writePage(dir, title, resp.FinalURL, body.String()); err != nil {
			return err
		}
	}
	t.dispatchAll(ctx, links, title, title, dir)
	return nil
}

// skipForum is the forum handler when forums are disabled.
func (t *traversal) skipForum(_ context.Context, req dispatch.Request) error {
	t.logger.Debug("forum handling disabled, skipping", "url", req.Link.URL, "page", req.Page)
	return nil
}

// handlePage processes a page module as content, titled by its heading.
func (t *traversal) handlePage(ctx context.Context, req dispatch.Request) error {
	resp, err := t.client.Get(ctx, req.Link.URL)
	if err != nil {
		return err
	}
	if !t.claimFinal(req.Link.URL, resp.FinalURL) {
		return nil
	}
	markup, err := t.parse(resp)
	if err != nil {
		return err
	}

	section, err := markup.ModuleSection()
	if err != nil {
		return err
	}
	t.processSection(ctx, resp.FinalURL, section.Title, section, "")
	return nil
}

// handleSubPage visits another view of the root course as a page.
func (t *traversal) handleSubPage(ctx context.Context, req dispatch.Request) error {
	return t.visitPage(ctx, req.Link.URL)
}

// download runs a download and records the file.
func (t *traversal) download(ctx context.Context, req download.Request) error {
	res, err := t.downloader.Download(ctx, req)
	if err != nil {
		return err
	}
	rec := res.Record(req.URL)
	if rel, err := filepath.Rel(t.snap.Live(), res.Path); err == nil {
		rec.Path = rel
	}
	t.report.AddFile(rec)
	return nil
}

// fetchPage fetches and parses an HTML page.
func (t *traversal) fetchPage(ctx context.Context, pageURL string) (*fetcher.Response, extract.Markup, error) {
	resp, err := t.client.Get(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}
	markup, err := t.parse(resp)
	if err != nil {
		return nil, nil, err
	}
	return resp, markup, nil
}

// parse parses an HTML response and counts the page as visited.
func (t *traversal) parse(resp *fetcher.Response) (extract.Markup, error) {
	if !resp.IsHTML() {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, resp.FinalURL)
	}
	markup, err := t.extractor.Parse(resp.Body, resp.FinalURL)
	if err != nil {
		return nil, err
	}
	t.report.PagesVisited++
	return markup, nil
}
