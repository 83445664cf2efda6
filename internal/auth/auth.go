package auth

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
)

// Login methods accepted by New.
const (
	MethodForm = "form"
	MethodIdex = "idex"
	MethodNone = "none"
)

const (
	loginPath   = "login/index.php"
	loginMarker = "/" + loginPath
	policyPath  = "user/policy.php"
	idpFormID   = "kc-form-login"
)

// Authenticator establishes a session on the client it was built with.
// It runs once, before any course is synchronized.
type Authenticator interface {
	Login(ctx context.Context) error
}

// Client is the transport a session is established on. *fetcher.Client
// implements it; its cookie jar keeps the session.
type Client interface {
	Get(ctx context.Context, ref string) (*fetcher.Response, error)
	PostForm(ctx context.Context, ref string, values url.Values) (*fetcher.Response, error)
	SameOrigin(rawURL string) bool
}

// Credentials are the username and password of the campus account.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) complete() bool {
	return c.Username != "" && c.Password != ""
}

// Option configures an authenticator.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// New returns the authenticator for method. An empty method is "form".
func New(method string, client Client, creds Credentials, opts ...Option) (Authenticator, error) {
	switch strings.ToLower(method) {
	case "", MethodForm:
		return NewFormLogin(client, creds, opts...), nil
	case MethodIdex:
		return NewIdentityProviderLogin(client, creds, opts...), nil
	case MethodNone:
		return NewNoLogin(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// FormLogin logs in through the Moodle login form.
type FormLogin struct {
	client Client
	creds  Credentials
	logger *slog.Logger
}

// NewFormLogin creates a FormLogin.
func NewFormLogin(client Client, creds Credentials, opts ...Option) *FormLogin {
	o := newOptions(opts)
	return &FormLogin{client: client, creds: creds, logger: o.logger}
}

// Login posts the credentials with the login token of the form. The
// login succeeded when the site redirects away from the login page.
func (l *FormLogin) Login(ctx context.Context) error {
	if !l.creds.complete() {
		return ErrMissingCredentials
	}

	resp, err := l.client.Get(ctx, loginPath)
	if err != nil {
		return fmt.Errorf("failed to fetch login page: %w", err)
	}
	forms, err := parseForms(resp)
	if err != nil {
		return err
	}

	values := url.Values{
		"action":   {"login"},
		"username": {l.creds.Username},
		"password": {l.creds.Password},
	}
	action := loginPath
	if form, ok := forms.FormWithField("logintoken"); ok {
		token, _ := form.Value("logintoken")
		values.Set("logintoken", token)
		action = form.Action
	} else if form, ok := forms.FormByID("login"); ok {
		action = form.Action
	}

	resp, err = l.client.PostForm(ctx, action, values)
	if err != nil {
		return fmt.Errorf("failed to post login form: %w", err)
	}
	if strings.Contains(resp.FinalURL, loginMarker) {
		return fmt.Errorf("%w: still on the login page", ErrLoginFailed)
	}

	l.logger.Info("logged in", "method", MethodForm, "username", l.creds.Username)
	return nil
}

// IdentityProviderLogin logs in through the external identity provider
// linked from the Moodle login page.
type IdentityProviderLogin struct {
	client Client
	creds  Credentials
	logger *slog.Logger
}

// NewIdentityProviderLogin creates an IdentityProviderLogin.
func NewIdentityProviderLogin(client Client, creds Credentials, opts ...Option) *IdentityProviderLogin {
	o := newOptions(opts)
	return &IdentityProviderLogin{client: client, creds: creds, logger: o.logger}
}

// Login follows the identity provider button, posts the credentials to its
// login form and expects to be redirected back to the campus.
func (l *IdentityProviderLogin) Login(ctx context.Context) error {
	if !l.creds.complete() {
		return ErrMissingCredentials
	}

	resp, err := l.client.Get(ctx, loginPath)
	if err != nil {
		return fmt.Errorf("failed to fetch login page: %w", err)
	}
	page, err := extract.NewPage(resp.Body, resp.FinalURL)
	if err != nil {
		return err
	}
	provider, ok := page.IdentityProvider()
	if !ok {
		return ErrNoIdentityProvider
	}

	resp, err = l.client.Get(ctx, provider)
	if err != nil {
		return fmt.Errorf("failed to fetch identity provider: %w", err)
	}
	forms, err := parseForms(resp)
	if err != nil {
		return err
	}
	form, ok := forms.FormByID(idpFormID)
	if !ok {
		return fmt.Errorf("%w: #%s on %s", extract.ErrFormNotFound, idpFormID, resp.FinalURL)
	}

	resp, err = l.client.PostForm(ctx, form.Action, url.Values{
		"username": {l.creds.Username},
		"password": {l.creds.Password},
	})
	if err != nil {
		return fmt.Errorf("failed to post identity provider form: %w", err)
	}
	if !l.client.SameOrigin(resp.FinalURL) || strings.Contains(resp.FinalURL, loginMarker) {
		return fmt.Errorf("%w: ended on %s", ErrLoginFailed, resp.FinalURL)
	}

	l.logger.Info("logged in", "method", MethodIdex, "username", l.creds.Username)
	return nil
}

// NoLogin is the authenticator used when the session cookie is configured.
type NoLogin struct {
	logger *slog.Logger
}

// NewNoLogin creates a NoLogin.
func NewNoLogin(opts ...Option) *NoLogin {
	o := newOptions(opts)
	return &NoLogin{logger: o.logger}
}

// Login does nothing.
func (n *NoLogin) Login(_ context.Context) error {
	n.logger.Debug("using configured session, skipping login")
	return nil
}

// PolicyAgreer accepts the site policy that Moodle interposes before the
// first course view of an account.
type PolicyAgreer struct {
	client Client
	logger *slog.Logger
}

// NewPolicyAgreer creates a PolicyAgreer.
func NewPolicyAgreer(client Client, opts ...Option) *PolicyAgreer {
	o := newOptions(opts)
	return &PolicyAgreer{client: client, logger: o.logger}
}

// Agree posts the acceptance with the session key of the policy page and
// fetches again the page that redirected to it.
func (a *PolicyAgreer) Agree(ctx context.Context, resp *fetcher.Response) (*fetcher.Response, error) {
	page, err := extract.NewPage(resp.Body, resp.FinalURL)
	if err != nil {
		return nil, err
	}
	sesskey, err := page.SessKey()
	if err != nil {
		return nil, err
	}

	accepted, err := a.client.PostForm(ctx, policyPath, url.Values{
		"sesskey": {sesskey},
		"agree":   {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post policy acceptance: %w", err)
	}
	a.logger.Info("accepted site policy")

	if len(resp.History) == 0 {
		return accepted, nil
	}
	return a.client.Get(ctx, resp.History[0].URL)
}

// parseForms extracts the forms of an HTML response.
func parseForms(resp *fetcher.Response) (*extract.ParseResult, error) {
	parser, err := extract.NewParser(resp.FinalURL)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", resp.FinalURL, err)
	}
	return result, nil
}
