package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SyncRoot is one top-level crawl target, normally one course.
type SyncRoot struct {
	// ID is the course id used in course/view.php?id=<ID>.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable course name; its slug names the output directory.
	Name string `json:"name" yaml:"name"`
}

// Slug returns the directory name of the root.
// Roots without a usable name fall back to their id.
func (r SyncRoot) Slug() string {
	if s := Slugify(r.Name); s != "" {
		return s
	}
	return Slugify("course " + r.ID)
}

// slugSeparators splits words. Dots are not part of the set so that
// "apunte v1.2" keeps its version and "notes.pdf" keeps its extension.
var slugSeparators = regexp.MustCompile("[\\s!\"#$%&'()*\\-/<=>?@\\[\\\\\\]^_`{|},:]+")

// asciiFold decomposes accented characters and drops the combining marks.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify generates an ASCII-only, lowercase, dash-separated slug.
func Slugify(text string) string {
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		folded = text
	}

	var ascii strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}

	words := slugSeparators.Split(ascii.String(), -1)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		// A word of dots alone would name "." or ".." once joined.
		if strings.Trim(w, ".") != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "-")
}
