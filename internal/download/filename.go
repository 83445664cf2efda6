package download

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/franciscod/campus-fetch/internal/model"
)

// scriptExtensions mark URL base names that name a handler, not a file.
var scriptExtensions = map[string]bool{
	".php":  true,
	".html": true,
	".htm":  true,
	".asp":  true,
	".aspx": true,
	".jsp":  true,
}

// preferredExtension picks one extension for content types that map to
// several in the system tables.
func preferredExtension(mediaType string) string {
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "application/zip":
		return ".zip"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ".pptx"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "text/plain":
		return ".txt"
	case "text/csv":
		return ".csv"
	case "video/mp4":
		return ".mp4"
	}
	return ""
}

// syntheticLength is the number of uuid characters in a synthetic name.
const syntheticLength = 8

// ResolveFilename picks the local name of a download, in this order:
//  1. the filename of the Content-Disposition header
//  2. the base name of the final URL, when it has a non-script extension
//  3. the slug of the link text, plus an extension guessed from contentType
//  4. a synthetic uuid-based token, plus the guessed extension
//
// The result is always a bare base name.
func ResolveFilename(header http.Header, finalURL, linkText, contentType string) string {
	if header != nil {
		if name := DispositionName(header.Get("Content-Disposition")); name != "" {
			return name
		}
	}
	if name := URLName(finalURL); name != "" {
		return name
	}

	ext := guessExtension(contentType)
	if slug := model.Slugify(linkText); slug != "" {
		if ext != "" && strings.HasSuffix(slug, ext) {
			return slug
		}
		return slug + ext
	}
	return uuid.NewString()[:syntheticLength] + ext
}

// DispositionName returns the filename parameter of a Content-Disposition
// value, decoding RFC 2231 filename* values. Malformed headers of the form
// `attachment; filename=a b.pdf` are still read.
func DispositionName(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		return SafeName(params["filename"])
	}

	_, after, found := strings.Cut(disposition, "filename=")
	if !found {
		return ""
	}
	name, _, _ := strings.Cut(after, ";")
	return SafeName(strings.Trim(strings.TrimSpace(name), `"`))
}

// URLName returns the unescaped base name of the URL path when it looks
// like a file name: it has an extension and the extension is not a script.
func URLName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}

	ext := strings.ToLower(path.Ext(base))
	if ext == "" || ext == "." || scriptExtensions[ext] {
		return ""
	}
	return SafeName(base)
}

// SafeName reduces name to a base name that cannot leave its directory.
// Names that reduce to nothing are returned as "".
func SafeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(name))
	switch base {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return base
}

// guessExtension returns an extension for contentType, or "" when unknown.
func guessExtension(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if ext := preferredExtension(mediaType); ext != "" {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
