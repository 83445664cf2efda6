package fetcher

import (
	"mime"
	"net/http"
	"strings"
)

// Response is a fully read HTTP response.
type Response struct {
	// StatusCode is the status of the final response.
	StatusCode int

	// Header is the header map of the final response.
	Header http.Header

	// Body is the decoded body. It is empty for HEAD requests.
	Body []byte

	// FinalURL is the URL of the final response after redirects.
	FinalURL string

	// History lists the redirect responses that led to the final one, oldest first.
	History []Hop
}

// Hop is one redirect response.
type Hop struct {
	// URL is the URL that answered with a redirect.
	URL string

	// StatusCode is the redirect status.
	StatusCode int

	// Header is the header map of the redirect response.
	Header http.Header
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mediaType
}

// IsHTML reports whether the response carries an HTML document.
func (r *Response) IsHTML() bool {
	ct := r.ContentType()
	return ct == "text/html" || ct == "application/xhtml+xml"
}
