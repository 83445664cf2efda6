package report

import (
	"bytes"

	"github.com/nao1215/markdown"

	"github.com/franciscod/campus-fetch/internal/download"
)

// Page is the text artifact of one visited page or section.
type Page struct {
	// Title is written as the first heading.
	Title string

	// Source is the URL the content was read from.
	Source string

	// Body is the converted text.
	Body string
}

// RenderPage renders an artifact: the title heading, a back-link to the
// source, a rule, and the body.
func RenderPage(page Page) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1(page.Title)
	md.PlainText("([fuente](" + page.Source + "))")
	md.HorizontalRule()
	md.PlainText(page.Body)
	if err := md.Build(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WritePage renders page and writes it to path atomically.
func WritePage(path string, page Page) error {
	content, err := RenderPage(page)
	if err != nil {
		return err
	}
	return download.WriteFile(path, []byte(content))
}
