package vimeo

import (
	"context"
	"net/http"
	"strings"

	"github.com/florianilch/vimeo-client/internal/transport"
)

// Verb is a lower-case HTTP method name.
type Verb string

// Verbs the client dispatches. Anything else is rejected, whatever the
// transport supports.
const (
	VerbHead    Verb = "head"
	VerbGet     Verb = "get"
	VerbPost    Verb = "post"
	VerbPut     Verb = "put"
	VerbPatch   Verb = "patch"
	VerbOptions Verb = "options"
	VerbDelete  Verb = "delete"
)

var verbs = map[Verb]struct{}{
	VerbHead:    {},
	VerbGet:     {},
	VerbPost:    {},
	VerbPut:     {},
	VerbPatch:   {},
	VerbOptions: {},
	VerbDelete:  {},
}

// IsVerb reports whether name is a dispatchable verb. Matching is
// case-sensitive.
func IsVerb(name string) bool {
	_, ok := verbs[Verb(name)]
	return ok
}

// Caller issues an authenticated request for one verb. url is either a path
// relative to the API root or an absolute URL.
type Caller func(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error)

// Lookup returns the Caller for verb. It fails with an *UnsupportedMethodError
// when verb is not in the allowed set or the transport lacks it. Callers are
// built once per verb and cached.
func (c *Client) Lookup(verb string) (Caller, error) {
	if !IsVerb(verb) {
		return nil, &UnsupportedMethodError{Method: verb}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if caller, ok := c.callers[Verb(verb)]; ok {
		return caller, nil
	}

	fn, ok := c.library.Lookup(verb)
	if !ok {
		return nil, &UnsupportedMethodError{Method: verb, missing: true}
	}

	caller := c.makeCaller(fn)
	c.callers[Verb(verb)] = caller
	return caller, nil
}

// makeCaller wraps fn so that every request carries the Accept header, a
// resolved URL and the current token. The Accept header is always replaced;
// callers cannot negotiate another API version per request.
func (c *Client) makeCaller(fn transport.VerbFunc) Caller {
	return func(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
		o := transport.NewOptions(opts...)
		o.Header.Set("Accept", c.accept)

		// An explicit WithAuth wins, the token endpoints need Basic auth.
		if !o.AuthSet() {
			if token := c.token; token != nil {
				o.Auth = token
			}
		}

		return fn(ctx, c.resolve(url), o)
	}
}

// resolve prefixes the API root to anything that is not an absolute URL.
func (c *Client) resolve(url string) string {
	if strings.HasPrefix(url, "http") {
		return url
	}
	return c.apiRoot + url
}

// Request issues a request for verb.
func (c *Client) Request(ctx context.Context, verb, url string, opts ...transport.Option) (*http.Response, error) {
	caller, err := c.Lookup(verb)
	if err != nil {
		return nil, err
	}
	return caller(ctx, url, opts...)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbHead), url, opts...)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbGet), url, opts...)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbPost), url, opts...)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbPut), url, opts...)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbPatch), url, opts...)
}

// Options issues an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbOptions), url, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error) {
	return c.Request(ctx, string(VerbDelete), url, opts...)
}
