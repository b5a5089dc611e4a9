package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthStrategy authenticates an outgoing request. The transport applies it
// immediately before the request is sent.
type AuthStrategy interface {
	Apply(req *http.Request) *http.Request
}

// VerbFunc issues a single request for one HTTP verb.
type VerbFunc func(ctx context.Context, url string, opts *Options) (*http.Response, error)

// Library exposes one VerbFunc per HTTP verb it supports.
type Library interface {
	// Lookup returns the function for a lower-case verb name such as "get".
	Lookup(verb string) (VerbFunc, bool)
}

// Options carries the per-request settings understood by a VerbFunc.
type Options struct {
	Header        http.Header
	Query         url.Values
	Body          io.Reader
	ContentLength int64
	Auth          AuthStrategy

	authSet bool
	err     error
}

// Option configures Options.
type Option func(*Options)

// NewOptions returns Options with an empty header map and opts applied in order.
func NewOptions(opts ...Option) *Options {
	o := &Options{Header: make(http.Header)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AuthSet reports whether the caller chose an AuthStrategy explicitly,
// including an explicit nil.
func (o *Options) AuthSet() bool {
	return o.authSet
}

// Err returns the first error recorded while applying options.
func (o *Options) Err() error {
	return o.err
}

// WithHeader sets a single header value.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		o.Header.Set(key, value)
	}
}

// WithHeaders copies all values of h into the request headers.
func WithHeaders(h http.Header) Option {
	return func(o *Options) {
		for key, values := range h {
			o.Header.Del(key)
			for _, v := range values {
				o.Header.Add(key, v)
			}
		}
	}
}

// WithQuery merges values into the request URL's query string.
func WithQuery(values url.Values) Option {
	return func(o *Options) {
		if o.Query == nil {
			o.Query = make(url.Values)
		}
		for key, vs := range values {
			o.Query[key] = append(o.Query[key], vs...)
		}
	}
}

// WithBody sends r as the request body. A non-empty contentType sets the
// Content-Type header.
func WithBody(r io.Reader, contentType string) Option {
	return func(o *Options) {
		o.Body = r
		if contentType != "" {
			o.Header.Set("Content-Type", contentType)
		}
	}
}

// WithContentLength sets an explicit request content length, needed for
// bodies whose length the transport cannot infer.
func WithContentLength(n int64) Option {
	return func(o *Options) {
		o.ContentLength = n
	}
}

// WithForm sends values as an application/x-www-form-urlencoded body.
func WithForm(values url.Values) Option {
	return func(o *Options) {
		encoded := values.Encode()
		o.Body = strings.NewReader(encoded)
		o.ContentLength = int64(len(encoded))
		o.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
}

// WithJSON sends v encoded as JSON.
func WithJSON(v any) Option {
	return func(o *Options) {
		data, err := json.Marshal(v)
		if err != nil {
			if o.err == nil {
				o.err = fmt.Errorf("encoding JSON body: %w", err)
			}
			return
		}
		o.Body = bytes.NewReader(data)
		o.ContentLength = int64(len(data))
		o.Header.Set("Content-Type", "application/json")
	}
}

// WithAuth overrides the authentication applied to the request. Passing nil
// sends the request unauthenticated.
func WithAuth(auth AuthStrategy) Option {
	return func(o *Options) {
		o.Auth = auth
		o.authSet = true
	}
}
