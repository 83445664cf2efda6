package extract

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// Parser extracts the title, links and forms of an HTML document in a
// single pass over the x/net/html tree. Login adapters use it to read
// hidden form fields such as logintoken.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains everything Parser extracts from a page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains every anchor with an href, resolved and in document order.
	Links []Link

	// Forms contains information about HTML forms.
	Forms []FormInfo
}

// Link is an anchor and its collapsed text.
type Link struct {
	URL  string
	Text string
}

// FormInfo contains information about an HTML form.
type FormInfo struct {
	// ID is the id attribute of the form element.
	ID string

	// Action is the resolved form action URL. An empty action resolves to the page itself.
	Action string

	// Method is the HTTP method (GET, POST).
	Method string

	// Fields contains form field names, types and default values.
	Fields []FormField
}

// FormField represents a form input field.
type FormField struct {
	// Name is the field name attribute.
	Name string

	// Type is the input type (text, password, hidden, etc.).
	Type string

	// Value is the default value if present.
	Value string
}

// Value returns the default value of the named field.
func (f FormInfo) Value(name string) (string, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// FormWithField returns the first form that has a field called name.
func (r *ParseResult) FormWithField(name string) (FormInfo, bool) {
	for _, form := range r.Forms {
		if _, ok := form.Value(name); ok {
			return form, true
		}
	}
	return FormInfo{}, false
}

// FormByID returns the form with the given id attribute.
func (r *ParseResult) FormByID(id string) (FormInfo, bool) {
	for _, form := range r.Forms {
		if form.ID == id {
			return form, true
		}
	}
	return FormInfo{}, false
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts title, links and forms.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]Link, 0),
		Forms: make([]FormInfo, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Links = append(result.Links, Link{
					URL:  resolved,
					Text: strings.Join(strings.Fields(nodeText(n)), " "),
				})
			}
		}

	case "form":
		action := getAttr(n, "action")
		form := FormInfo{
			ID:     getAttr(n, "id"),
			Action: p.baseURL.String(),
			Method: strings.ToUpper(getAttr(n, "method")),
			Fields: make([]FormField, 0),
		}
		if action != "" {
			form.Action = p.resolveURL(action)
		}
		if form.Method == "" {
			form.Method = "GET"
		}
		p.extractFormFields(n, &form)
		result.Forms = append(result.Forms, form)
	}
}

// extractFormFields recursively extracts form fields from a form element.
func (p *Parser) extractFormFields(n *html.Node, form *FormInfo) {
	if n.Type == html.ElementNode && (n.Data == htmlElementInput || n.Data == htmlElementSelect || n.Data == htmlElementTextarea) {
		field := FormField{
			Name:  getAttr(n, "name"),
			Type:  getAttr(n, "type"),
			Value: getAttr(n, "value"),
		}
		if field.Type == "" {
			switch n.Data {
			case htmlElementTextarea:
				field.Type = htmlElementTextarea
			case htmlElementSelect:
				field.Type = htmlElementSelect
			default:
				field.Type = "text"
			}
		}
		if field.Name != "" {
			form.Fields = append(form.Fields, field)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.extractFormFields(c, form)
	}
}

// resolveURL resolves a relative URL against the base URL.
// Non-navigational schemes and bare fragments resolve to "".
func (p *Parser) resolveURL(href string) string {
	return resolveAgainst(p.baseURL, href)
}

// resolveAgainst resolves href against base, dropping javascript:, mailto:,
// tel:, data: and "#" references.
func resolveAgainst(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// nodeText concatenates the text nodes below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
