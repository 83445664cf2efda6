package extract

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
)

// DefaultBulletMark prefixes unordered list items when TextOptions leaves it empty.
const DefaultBulletMark = "-"

// TextOptions configures ToText.
type TextOptions struct {
	// BulletMark prefixes unordered list items: "-", "+" or "*".
	BulletMark string

	// BaseURL resolves relative links and images. Empty leaves them as written.
	BaseURL string
}

// ValidBulletMark reports whether mark can prefix list items.
func ValidBulletMark(mark string) bool {
	switch mark {
	case "-", "+", "*":
		return true
	}
	return false
}

// ToText converts an HTML fragment to Markdown-flavoured plain text.
//
// Headings, paragraphs, lists, links, images, emphasis and code are kept,
// preformatted text becomes a fenced block, scripts are dropped and other
// whitespace collapses. The result is "" when nothing but whitespace
// remains, so callers can test emptiness without trimming.
func ToText(fragment string, opts TextOptions) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	if opts.BaseURL != "" {
		fragment = absolutize(fragment, opts.BaseURL)
	}

	bullet := opts.BulletMark
	if !ValidBulletMark(bullet) {
		bullet = DefaultBulletMark
	}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithBulletListMarker(bullet),
			),
		),
	)

	out, err := conv.ConvertString(fragment)
	if err != nil {
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	return out + "\n"
}

// absolutize rewrites the href of links and the src of images in fragment
// against baseURL. The fragment is returned unchanged if it cannot be parsed.
func absolutize(fragment, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	rewrite := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, sel *goquery.Selection) {
			ref, _ := sel.Attr(attr)
			if abs := resolveAgainst(base, ref); abs != "" {
				sel.SetAttr(attr, abs)
			}
		}
	}
	doc.Find("a[href]").Each(rewrite("href"))
	doc.Find("img[src]").Each(rewrite("src"))

	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}
