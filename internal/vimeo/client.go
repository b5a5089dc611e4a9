package vimeo

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/florianilch/vimeo-client/internal/auth"
	"github.com/florianilch/vimeo-client/internal/transport"
	"github.com/florianilch/vimeo-client/internal/upload"
)

const (
	// APIRoot is prefixed to every request path that is not an absolute URL.
	APIRoot = "https://api.vimeo.com"

	// AcceptHeader pins responses to API version 3.2.
	AcceptHeader = "application/vnd.vimeo.*;version=3.2"
)

// Credentials is the authentication material a Client is built from. Either
// Token or both Key and Secret must be set.
type Credentials struct {
	Token  string
	Key    string
	Secret string
}

// AppCredentials identify the application. They only bootstrap OAuth2 flows
// and are never sent as a bearer token.
type AppCredentials struct {
	Key    string
	Secret string
}

// LogValue keeps the secret out of logs.
func (a AppCredentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("key", a.Key), slog.String("secret", "[REDACTED]"))
}

// Client is an authenticated handle for the Vimeo API.
//
// Replacing the token with SetToken while other goroutines issue requests is
// a data race. Rotating credentials on a shared Client requires external
// synchronization.
type Client struct {
	token *Token
	app   *AppCredentials

	apiRoot string
	accept  string
	library transport.Library
	logger  *slog.Logger

	scopes        []string
	redirectURL   string
	uploadOptions []upload.Option

	mu      sync.Mutex
	callers map[Verb]Caller

	clientCredentials *auth.ClientCredentials
	authorizationCode *auth.AuthorizationCode
	uploader          *upload.Uploader
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the backing transport library. The default is a
// transport.HTTP using the client's logger.
func WithTransport(lib transport.Library) Option {
	return func(c *Client) {
		c.library = lib
	}
}

// WithAPIRoot overrides APIRoot, e.g. for a test server.
func WithAPIRoot(root string) Option {
	return func(c *Client) {
		c.apiRoot = strings.TrimSuffix(root, "/")
	}
}

// WithAcceptHeader overrides the Accept header sent with every request.
func WithAcceptHeader(accept string) Option {
	return func(c *Client) {
		c.accept = accept
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithScopes sets the default scopes requested by the OAuth2 flows.
func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

// WithRedirectURL sets the default redirect URL of the authorization-code flow.
func WithRedirectURL(redirectURL string) Option {
	return func(c *Client) {
		c.redirectURL = redirectURL
	}
}

// WithUploadOptions configures the uploader behind Upload and UploadReader.
func WithUploadOptions(opts ...upload.Option) Option {
	return func(c *Client) {
		c.uploadOptions = append(c.uploadOptions, opts...)
	}
}

// New resolves creds and creates a Client. It fails with a
// *ConfigurationError unless a token or both key and secret are given.
func New(creds Credentials, opts ...Option) (*Client, error) {
	hasApp := creds.Key != "" && creds.Secret != ""
	if creds.Token == "" && !hasApp {
		return nil, &ConfigurationError{Reason: "an access token or an application key and secret are required"}
	}

	c := &Client{
		apiRoot: APIRoot,
		accept:  AcceptHeader,
		logger:  slog.Default(),
		callers: make(map[Verb]Caller),
	}
	for _, opt := range opts {
		opt(c)
	}

	if creds.Token != "" {
		// Cannot fail: the secret is non-empty.
		c.token, _ = NewToken(creds.Token)
	}
	if hasApp {
		c.app = &AppCredentials{Key: creds.Key, Secret: creds.Secret}
	}

	if c.library == nil {
		c.library = transport.New(transport.WithLogger(c.logger))
	}

	if c.app != nil {
		c.clientCredentials = auth.NewClientCredentials(c, c, c.app.Key, c.app.Secret, c.scopes)
		c.authorizationCode = auth.NewAuthorizationCode(c, c, c.app.Key, c.app.Secret,
			auth.Endpoint(c.apiRoot), c.redirectURL, c.scopes)
	}
	c.uploader = upload.New(c, append([]upload.Option{upload.WithLogger(c.logger)}, c.uploadOptions...)...)

	return c, nil
}

// SetToken replaces the current token. An empty raw value clears it. Calls
// already in flight keep the token they started with.
func (c *Client) SetToken(raw string) {
	if raw == "" {
		c.token = nil
		return
	}
	c.token = &Token{secret: raw}
}

// Token returns the raw current token, or "" when none is held.
func (c *Client) Token() string {
	if t := c.token; t != nil {
		return t.String()
	}
	return ""
}

// HasToken reports whether a token is held.
func (c *Client) HasToken() bool {
	return c.token != nil
}

// App returns the application credentials, or nil when none were given.
func (c *Client) App() *AppCredentials {
	return c.app
}

// APIRoot returns the root relative URLs are resolved against.
func (c *Client) APIRoot() string {
	return c.apiRoot
}
