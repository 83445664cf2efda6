package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/franciscod/campus-fetch/internal/model"
)

// Markup is the parsed view of one Moodle page that the crawl engine consumes.
type Markup interface {
	// Title returns the document title.
	Title() string

	// Navigation returns the tab links of the page in document order.
	Navigation() []model.ResourceLink

	// Unavailable reports whether the page is an error page.
	Unavailable() bool

	// Sections returns the content sections of a course view.
	Sections() ([]model.Section, error)

	// ModuleSection returns the single content section of a module page.
	ModuleSection() (model.Section, error)

	// ResourceTarget returns the file behind a resource view page.
	ResourceTarget() (string, bool)

	// FolderFiles returns the files listed by a folder page.
	FolderFiles() []model.ResourceLink

	// Discussions returns the thread links of a forum page.
	Discussions() []model.ResourceLink

	// Thread returns the title and posts of a discussion page.
	Thread() (string, []model.Section)

	// ShortcutTarget returns the destination shown by a URL module page.
	ShortcutTarget() (string, bool)

	// SessKey returns the session key embedded in the page.
	SessKey() (string, error)
}

// Moodle is the extraction adapter for Moodle markup.
type Moodle struct{}

// NewMoodle creates a Moodle adapter.
func NewMoodle() *Moodle {
	return &Moodle{}
}

// Parse parses body as the page served at pageURL.
func (m *Moodle) Parse(body []byte, pageURL string) (Markup, error) {
	return NewPage(body, pageURL)
}

// ToText converts an HTML fragment to Markdown-flavoured text.
func (m *Moodle) ToText(fragment string, opts TextOptions) string {
	return ToText(fragment, opts)
}

// Page is a goquery document bound to the URL it was served from.
type Page struct {
	doc  *goquery.Document
	base *url.URL
}

// NewPage parses body. Relative references resolve against pageURL.
func NewPage(body []byte, pageURL string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	return &Page{doc: doc, base: base}, nil
}

// Title returns the trimmed <title> text.
func (p *Page) Title() string {
	return collapse(p.doc.Find("title").First().Text())
}

// Navigation returns the links of the tab bar (.nav-tabs li a).
func (p *Page) Navigation() []model.ResourceLink {
	return p.links(p.doc.Find(".nav-tabs li a"))
}

// Unavailable reports whether the page carries an .errormessage block.
func (p *Page) Unavailable() bool {
	return p.doc.Find(".errormessage").Length() > 0
}

// Sections returns the content of a course view.
//
// A course in topics format with more than one topic yields one section per
// topic: the title is the topic name, the text is its summary and the links
// are every anchor in the topic, activities included. Any other view yields
// a single section titled by the active tab and holding #region-main .content.
func (p *Page) Sections() ([]model.Section, error) {
	topics := p.doc.Find("ul.topics > li.section")
	if topics.Length() > 1 {
		sections := make([]model.Section, 0, topics.Length())
		var err error
		topics.EachWithBreak(func(_ int, topic *goquery.Selection) bool {
			title := collapse(topic.Find(".content .sectionname").First().Text())
			if title == "" {
				err = fmt.Errorf("%w: topic on %s", ErrMissingTitle, p.base)
				return false
			}
			sections = append(sections, model.Section{
				Title: title,
				HTML:  outerHTML(topic.Find(".content .summary").First()),
				Links: p.links(topic.Find(".content a[href]")),
			})
			return true
		})
		if err != nil {
			return nil, err
		}
		return sections, nil
	}

	title := collapse(p.doc.Find(".active span").First().Text())
	if title == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingTitle, p.base)
	}
	content := p.doc.Find("#region-main .content").First()
	return []model.Section{{
		Title: title,
		HTML:  outerHTML(content),
		Links: p.links(content.Find("a[href]")),
	}}, nil
}

// ModuleSection returns the content of a module page (/mod/page): the
// heading of #region-main and its .generalbox.
func (p *Page) ModuleSection() (model.Section, error) {
	main := p.doc.Find("#region-main")
	title := collapse(main.Find("h2").First().Text())
	if title == "" {
		return model.Section{}, fmt.Errorf("%w: %s", ErrMissingTitle, p.base)
	}
	content := main.Find(".generalbox").First()
	return model.Section{
		Title: title,
		HTML:  outerHTML(content),
		Links: p.links(content.Find("a[href]")),
	}, nil
}

// ResourceTarget returns the file linked by a resource view page: the
// anchor inside the embedding object, or the src of an image resource.
func (p *Page) ResourceTarget() (string, bool) {
	if href, ok := p.doc.Find("object a").First().Attr("href"); ok {
		if target := resolveAgainst(p.base, href); target != "" {
			return target, true
		}
	}
	if src, ok := p.doc.Find("img.resourceimage").First().Attr("src"); ok {
		if target := resolveAgainst(p.base, src); target != "" {
			return target, true
		}
	}
	return "", false
}

// FolderFiles returns the pluginfile.php anchors of a folder page.
func (p *Page) FolderFiles() []model.ResourceLink {
	return p.links(p.doc.Find(`#region-main a[href*="/pluginfile.php/"]`))
}

// Discussions returns the discuss.php anchors of a forum page.
func (p *Page) Discussions() []model.ResourceLink {
	return p.links(p.doc.Find(`#region-main a[href*="/mod/forum/discuss.php"]`))
}

// Thread returns the discussion name and one section per post.
// Each post section is titled by its subject and holds the post body.
func (p *Page) Thread() (string, []model.Section) {
	title := collapse(p.doc.Find(".discussionname").First().Text())
	if title == "" {
		title = collapse(p.doc.Find("#region-main h2").First().Text())
	}

	posts := make([]model.Section, 0)
	p.doc.Find(".forumpost").Each(func(_ int, post *goquery.Selection) {
		body := post.Find(".posting").First()
		if body.Length() == 0 {
			body = post.Find(".post-content-container").First()
		}
		posts = append(posts, model.Section{
			Title: collapse(post.Find(".subject").First().Text()),
			HTML:  outerHTML(body),
			Links: p.links(body.Find("a[href]")),
		})
	})

	if title == "" && len(posts) > 0 {
		title = posts[0].Title
	}
	return title, posts
}

// ShortcutTarget returns the link shown by a URL module page when the
// site does not redirect straight to it.
func (p *Page) ShortcutTarget() (string, bool) {
	href, ok := p.doc.Find(".urlworkaround a").First().Attr("href")
	if !ok {
		return "", false
	}
	target := resolveAgainst(p.base, href)
	return target, target != ""
}

// SessKey returns the session key, read from the logout link of the user
// menu or, failing that, from a sesskey form input.
func (p *Page) SessKey() (string, error) {
	var key string
	p.doc.Find(".logininfo a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		_, after, found := strings.Cut(href, "sesskey=")
		if !found {
			return true
		}
		key, _, _ = strings.Cut(after, "&")
		return key == ""
	})
	if key != "" {
		return key, nil
	}

	if value, ok := p.doc.Find("input[name=sesskey]").First().Attr("value"); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoSessKey, p.base)
}

// IdentityProvider returns the first identity provider button of a login page.
func (p *Page) IdentityProvider() (string, bool) {
	href, ok := p.doc.Find(".login-identityprovider-btn").First().Attr("href")
	if !ok {
		return "", false
	}
	target := resolveAgainst(p.base, href)
	return target, target != ""
}

// links converts anchors to resource links, skipping those without a
// usable href.
func (p *Page) links(sel *goquery.Selection) []model.ResourceLink {
	links := make([]model.ResourceLink, 0, sel.Length())
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		target := resolveAgainst(p.base, href)
		if target == "" {
			return
		}
		links = append(links, model.ResourceLink{URL: target, Text: collapse(a.Text())})
	})
	return links
}

// outerHTML renders the selection including its own tag; an empty
// selection renders as "".
func outerHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	out, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return out
}

// collapse trims s and folds inner whitespace runs to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
