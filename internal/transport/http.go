package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// RequestIDHeader correlates retries of one logical request in server logs.
const RequestIDHeader = "X-Request-ID"

// HTTP is the default Library, backed by a retrying net/http client.
//
// Retries cover connection errors, 429 and 5xx responses (except 501). When
// retries are exhausted the last response is returned as-is; status codes are
// never turned into errors here.
type HTTP struct {
	client    *retryablehttp.Client
	userAgent string
	verbs     map[string]VerbFunc
}

// Compile-time check that HTTP implements Library.
var _ Library = (*HTTP)(nil)

type httpConfig struct {
	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	rateLimit    rate.Limit
	burst        int
	base         http.RoundTripper
	logger       *slog.Logger
	userAgent    string
}

// ClientOption configures an HTTP library.
type ClientOption func(*httpConfig)

// WithTimeout bounds every single attempt. Zero disables the timeout, which
// large uploads need.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *httpConfig) {
		c.timeout = d
	}
}

// WithRetry configures the retry budget and the backoff window.
func WithRetry(maxRetries int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *httpConfig) {
		c.retryMax = maxRetries
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

// WithRateLimit limits outgoing attempts to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *httpConfig) {
		if perSecond <= 0 {
			c.rateLimit = rate.Inf
			return
		}
		c.rateLimit = rate.Limit(perSecond)
		c.burst = max(burst, 1)
	}
}

// WithBaseTransport sets the RoundTripper at the bottom of the chain.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(c *httpConfig) {
		c.base = rt
	}
}

// WithLogger sets the logger for retries and request tracing.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *httpConfig) {
		c.logger = logger
	}
}

// WithUserAgent overrides the default User-Agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *httpConfig) {
		c.userAgent = ua
	}
}

// New creates an HTTP library.
func New(opts ...ClientOption) *HTTP {
	cfg := httpConfig{
		retryMax:     3,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 10 * time.Second,
		rateLimit:    rate.Inf,
		logger:       slog.Default(),
		userAgent:    "vimeo-client/" + versioninfo.Short(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	base := cfg.base
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	rt := chain(base,
		rateLimited(rate.NewLimiter(cfg.rateLimit, cfg.burst)),
		traceContextPropagation,
		logged(cfg.logger),
	)

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: rt,
		Timeout:   cfg.timeout,
	}
	retryClient.RetryMax = cfg.retryMax
	retryClient.RetryWaitMin = cfg.retryWaitMin
	retryClient.RetryWaitMax = cfg.retryWaitMax
	retryClient.Logger = retryablehttp.LeveledLogger(leveledLogger{cfg.logger})
	// Hand the final response back instead of a "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	h := &HTTP{
		client:    retryClient,
		userAgent: cfg.userAgent,
	}
	h.verbs = map[string]VerbFunc{
		"head":    h.verb(http.MethodHead),
		"get":     h.verb(http.MethodGet),
		"post":    h.verb(http.MethodPost),
		"put":     h.verb(http.MethodPut),
		"patch":   h.verb(http.MethodPatch),
		"delete":  h.verb(http.MethodDelete),
		"options": h.verb(http.MethodOptions),
		"trace":   h.verb(http.MethodTrace),
	}

	return h
}

// Lookup implements Library.
func (h *HTTP) Lookup(verb string) (VerbFunc, bool) {
	fn, ok := h.verbs[verb]
	return fn, ok
}

func (h *HTTP) verb(method string) VerbFunc {
	return func(ctx context.Context, rawURL string, opts *Options) (*http.Response, error) {
		return h.Do(ctx, method, rawURL, opts)
	}
}

// Do sends a request with an explicit method. opts may be nil.
func (h *HTTP) Do(ctx context.Context, method, rawURL string, opts *Options) (*http.Response, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Err(); err != nil {
		return nil, err
	}

	target, err := withQuery(rawURL, opts.Query)
	if err != nil {
		return nil, err
	}

	var body any
	if opts.Body != nil {
		body = opts.Body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if opts.ContentLength > 0 {
		req.ContentLength = opts.ContentLength
	}

	for key, values := range opts.Header {
		req.Header[key] = append([]string(nil), values...)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.New().String())
	}

	if opts.Auth != nil {
		opts.Auth.Apply(req.Request)
	}

	return h.client.Do(req)
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	merged := u.Query()
	for key, values := range query {
		merged[key] = append(merged[key], values...)
	}
	u.RawQuery = merged.Encode()

	return u.String(), nil
}

// leveledLogger adapts slog to retryablehttp. Intermediate failures are
// retried, so errors are logged as warnings.
type leveledLogger struct {
	logger *slog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, redactURL(keysAndValues)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, redactURL(keysAndValues)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, redactURL(keysAndValues)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, redactURL(keysAndValues)...)
}

// redactURL strips query strings from logged URLs; upload links carry
// signatures there.
func redactURL(keysAndValues []any) []any {
	out := make([]any, len(keysAndValues))
	copy(out, keysAndValues)
	for i := 0; i+1 < len(out); i += 2 {
		if key, ok := out[i].(string); ok && key == "url" {
			switch v := out[i+1].(type) {
			case string:
				out[i+1], _, _ = strings.Cut(v, "?")
			case *url.URL:
				stripped := *v
				stripped.RawQuery = ""
				out[i+1] = stripped.String()
			}
		}
	}
	return out
}
