package freshness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/franciscod/campus-fetch/internal/fetcher"
)

// HeadFetcher issues metadata-only requests.
type HeadFetcher interface {
	Head(ctx context.Context, ref string) (*fetcher.Response, error)
}

// Checker decides whether a previously downloaded file still matches the
// origin without fetching the body.
//
// It trusts the origin's entity tag to be a content hash. When that does
// not hold the comparison simply never matches, and callers re-download.
type Checker struct {
	client  HeadFetcher
	newHash HashFunc
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHash replaces the digest compared against tokens.
func WithHash(newHash HashFunc) Option {
	return func(c *Checker) {
		c.newHash = newHash
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a Checker that sends HEAD requests through client.
func NewChecker(client HeadFetcher, opts ...Option) *Checker {
	c := &Checker{
		client:  client,
		newHash: DefaultHash,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Hash returns the digest constructor in use.
func (c *Checker) Hash() HashFunc {
	return c.newHash
}

// Token returns the normalized freshness token of rawURL together with the
// HEAD response. The final response's ETag is preferred; otherwise the
// first ETag found along the redirect history is used, because pluginfile
// redirects may carry it while the final hop does not. An empty token means
// the origin supplied none.
func (c *Checker) Token(ctx context.Context, rawURL string) (string, *fetcher.Response, error) {
	resp, err := c.client.Head(ctx, rawURL)
	if err != nil {
		return "", nil, err
	}
	return TokenOf(resp), resp, nil
}

// TokenOf extracts the freshness token of an already fetched response.
func TokenOf(resp *fetcher.Response) string {
	if resp == nil {
		return ""
	}
	if etag := NormalizeETag(resp.Header.Get("ETag")); etag != "" {
		return etag
	}
	for _, hop := range resp.History {
		if etag := NormalizeETag(hop.Header.Get("ETag")); etag != "" {
			return etag
		}
	}
	return ""
}

// Matches reports whether shadowFile is a valid copy of rawURL.
//
// Inconclusive outcomes are false with a nil error: no shadow file, no
// token, or a failed HEAD. Only a failure to read an existing shadow file
// is returned as an error. The shadow file is looked at before the network
// so that first runs cost no HEAD requests.
func (c *Checker) Matches(ctx context.Context, rawURL, shadowFile string) (bool, error) {
	_, ok, err := c.Validate(ctx, rawURL, shadowFile)
	return ok, err
}

// Validate is Matches that also returns the token it compared against.
func (c *Checker) Validate(ctx context.Context, rawURL, shadowFile string) (string, bool, error) {
	if shadowFile == "" {
		return "", false, nil
	}
	info, err := os.Stat(shadowFile)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to stat %s: %w", shadowFile, err)
	}
	if !info.Mode().IsRegular() {
		return "", false, nil
	}

	token, _, err := c.Token(ctx, rawURL)
	if err != nil {
		c.logger.Debug("freshness check inconclusive", "url", rawURL, "error", err)
		return "", false, nil
	}
	if token == "" {
		c.logger.Debug("no ETag on headers", "url", rawURL)
		return "", false, nil
	}

	digest, err := FileDigest(shadowFile, c.newHash)
	if err != nil {
		return token, false, err
	}
	if !strings.EqualFold(digest, token) {
		c.logger.Debug("digest and ETag mismatch", "url", rawURL, "file", shadowFile, "digest", digest, "etag", token)
		return token, false, nil
	}
	return token, true, nil
}
