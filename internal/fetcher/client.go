package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// maxRedirects bounds redirect chains. Moodle chains (login, policy, SSO)
// are short; anything longer is a loop.
const maxRedirects = 10

// Client performs authenticated requests relative to a configured origin.
// The session lives in the cookie jar: once a login adapter has run through
// the same Client, every later request is authenticated.
//
// Design decision: Response bodies are read whole and returned as bytes
// because every consumer (markup extraction, hashing, writing) needs the
// complete body before it can proceed, and traversal is sequential per root.
type Client struct {
	// base is the origin relative references are resolved against.
	base *url.URL

	// http is the underlying client with jar and redirect policy.
	http *http.Client

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits the decoded body size; 0 disables the limit.
	maxBodySize int64

	// logger receives one debug line per request.
	logger *slog.Logger
}

// options collects settings before the http.Client is built.
type options struct {
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string
	transport   http.RoundTripper
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout. A timeout is a fetch failure.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithMaxBodySize limits response bodies. 0 means unlimited.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// WithCookie injects a raw cookie string ("MoodleSession=...") into every request.
// This lets an existing browser session replace the login step.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithHeaders injects custom headers into every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithTransport replaces the base RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewClient creates a Client for the origin baseURL.
// A base URL without a trailing slash gets one, so that "course/view.php"
// resolves below a Moodle installed in a sub-path.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	o := &options{
		timeout:   60 * time.Second,
		userAgent: "campus-fetch",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			// Bodies are decoded by readBody so that br is supported too
			DisableCompression: true,
		}
	}
	if o.cookie != "" || len(o.headers) > 0 {
		transport = &headerInjectingTransport{
			base:    transport,
			cookie:  o.cookie,
			headers: o.headers,
		}
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails

	return &Client{
		base: base,
		http: &http.Client{
			Transport:     transport,
			Timeout:       o.timeout,
			Jar:           jar,
			CheckRedirect: recordRedirect,
		},
		userAgent:   o.userAgent,
		maxBodySize: o.maxBodySize,
		logger:      o.logger,
	}, nil
}

// historyKey carries the redirect recorder of one request in its context.
type historyKey struct{}

// historyRecorder accumulates the redirect hops of one request.
type historyRecorder struct {
	hops []Hop
}

// recordRedirect is the CheckRedirect policy: it stops after maxRedirects
// and otherwise records the redirect response that triggered req.
func recordRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	rec, ok := req.Context().Value(historyKey{}).(*historyRecorder)
	if ok && req.Response != nil {
		rec.hops = append(rec.hops, Hop{
			URL:        req.Response.Request.URL.String(),
			StatusCode: req.Response.StatusCode,
			Header:     req.Response.Header.Clone(),
		})
	}
	return nil
}

// Base returns a copy of the configured origin.
func (c *Client) Base() *url.URL {
	u := *c.base
	return &u
}

// Resolve turns ref into an absolute URL. Absolute http(s) references are
// returned unchanged; anything else is resolved against the origin.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return c.base.ResolveReference(u).String(), nil
}

// SameOrigin reports whether rawURL points at the configured host.
func (c *Client) SameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, c.base.Host)
}

// Head issues a HEAD request, following redirects. The body is never read.
func (c *Client) Head(ctx context.Context, ref string) (*Response, error) {
	return c.do(ctx, http.MethodHead, ref, nil, "")
}

// Get issues a GET request and reads the whole body.
func (c *Client) Get(ctx context.Context, ref string) (*Response, error) {
	return c.do(ctx, http.MethodGet, ref, nil, "")
}

// PostForm posts url-encoded values.
func (c *Client) PostForm(ctx context.Context, ref string, values url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, ref, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

// PostJSON posts v encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, ref string, v any) (*Response, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON body: %w", err)
	}
	return c.do(ctx, http.MethodPost, ref, bytes.NewReader(payload), "application/json")
}

// do performs one request and its redirects.
func (c *Client) do(ctx context.Context, method, ref string, body io.Reader, contentType string) (*Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	rec := &historyRecorder{}
	ctx = context.WithValue(ctx, historyKey{}, rec)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		FinalURL:   resp.Request.URL.String(),
		History:    rec.hops,
	}

	c.logger.Debug("request completed",
		"method", method,
		"url", target,
		"final_url", result.FinalURL,
		"status", resp.StatusCode,
		"redirects", len(rec.hops),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: result.FinalURL, StatusCode: resp.StatusCode}
	}

	if method != http.MethodHead {
		result.Body, err = readBody(resp, c.maxBodySize)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", result.FinalURL, err)
		}
		// The body is decoded, so the encoding headers no longer describe it
		result.Header.Del("Content-Encoding")
		result.Header.Del("Content-Length")
	}

	return result, nil
}
