package model

import "path/filepath"

// ResourceKind classifies an outbound link and decides how it is handled.
type ResourceKind int

const (
	// KindUnhandled is a link no handler recognizes. It is logged and skipped.
	KindUnhandled ResourceKind = iota

	// KindFile is a direct file link (pluginfile.php).
	KindFile

	// KindResource is a resource module page (/mod/resource) that leads to a file.
	KindResource

	// KindShortcut is a URL module (/mod/url) pointing somewhere else.
	KindShortcut

	// KindFolder is a folder module (/mod/folder) listing several files.
	KindFolder

	// KindDiscussion is a single forum thread (/mod/forum/discuss.php).
	KindDiscussion

	// KindForum is a forum module (/mod/forum) listing threads.
	KindForum

	// KindPage is a page module (/mod/page) or any content page.
	KindPage

	// KindSubPage is another view of the root course (course/view.php with the same id).
	KindSubPage
)

// String returns the name used in logs and reports.
func (k ResourceKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindResource:
		return "resource"
	case KindShortcut:
		return "url"
	case KindFolder:
		return "folder"
	case KindDiscussion:
		return "discussion"
	case KindForum:
		return "forum"
	case KindPage:
		return "page"
	case KindSubPage:
		return "subpage"
	default:
		return "unhandled"
	}
}

// Family returns the VisitKey tag for the kind.
// Every page-like kind maps to "page" so that a sub-page link to a view
// already reached through navigation is not fetched again.
func (k ResourceKind) Family() string {
	if k == KindSubPage {
		return KindPage.String()
	}
	return k.String()
}

// ResourceLink is an outbound link extracted from page content.
type ResourceLink struct {
	// URL is the absolute link target.
	URL string `json:"url"`

	// Text is the anchor text, trimmed.
	Text string `json:"text,omitempty"`

	// Kind is filled in by classification; extraction leaves it unhandled.
	Kind ResourceKind `json:"kind"`
}

// Section is a titled block of page content with the links found in it.
type Section struct {
	// Title names the section and, slugified, its artifact and files directory.
	Title string

	// HTML is the raw content fragment, converted to text for the artifact.
	HTML string

	// Links are the anchors inside HTML, in document order.
	Links []ResourceLink
}

// CrawlNode is a page reached during traversal.
// It lives only while the page is being processed and is never persisted.
type CrawlNode struct {
	// URL is the canonical URL of the page after redirects.
	URL string

	// Title is the human-readable page title.
	Title string

	// Links are every content link found on the page, in dispatch order.
	Links []ResourceLink
}

// DownloadTarget is the local destination of a fetched resource.
type DownloadTarget struct {
	// BaseDir is the live directory of the SyncRoot.
	BaseDir string

	// Subdir is the section or category directory relative to BaseDir.
	Subdir string

	// Filename is the resolved file name.
	Filename string
}

// Rel returns the path relative to BaseDir.
func (t DownloadTarget) Rel() string {
	return filepath.Join(t.Subdir, t.Filename)
}

// Path returns the absolute destination path.
func (t DownloadTarget) Path() string {
	return filepath.Join(t.BaseDir, t.Subdir, t.Filename)
}
