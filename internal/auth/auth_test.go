package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/transport"
)

// recordingDispatcher captures the request a strategy would send and replies
// with a canned response.
type recordingDispatcher struct {
	url    string
	req    *http.Request
	body   string
	status int
	reply  string
	err    error
}

func (d *recordingDispatcher) Post(ctx context.Context, rawURL string, opts ...transport.Option) (*http.Response, error) {
	if d.err != nil {
		return nil, d.err
	}

	o := transport.NewOptions(opts...)
	d.url = rawURL

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.vimeo.com", nil)
	if err != nil {
		return nil, err
	}
	req.Header = o.Header.Clone()
	if o.Auth != nil {
		o.Auth.Apply(req)
	}
	d.req = req

	if o.Body != nil {
		b, _ := io.ReadAll(o.Body)
		d.body = string(b)
	}

	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.reply)),
	}, nil
}

type recordingInstaller struct {
	token string
}

func (i *recordingInstaller) SetToken(raw string) {
	i.token = raw
}

func TestClientCredentialsExchange(t *testing.T) {
	t.Parallel()

	t.Run("installs the issued token", func(t *testing.T) {
		d := &recordingDispatcher{
			status: http.StatusOK,
			reply:  `{"access_token":"app-token","token_type":"bearer","scope":"public private","app":{"name":"demo"}}`,
		}
		i := &recordingInstaller{}

		cc := NewClientCredentials(d, i, "key", "secret", []string{"public"})
		token, err := cc.Exchange(t.Context(), "public", "private")
		require.NoError(t, err)

		require.Equal(t, ClientCredentialsPath, d.url)
		key, secret, ok := d.req.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", key)
		require.Equal(t, "secret", secret)

		form, err := url.ParseQuery(d.body)
		require.NoError(t, err)
		require.Equal(t, "client_credentials", form.Get("grant_type"))
		require.Equal(t, "public private", form.Get("scope"))

		require.Equal(t, "app-token", token.AccessToken)
		require.Equal(t, "public private", token.Extra("scope"))
		require.True(t, token.Expiry.IsZero(), "vimeo tokens without expires_in do not expire")
		require.Equal(t, "app-token", i.token)
	})

	t.Run("uses default scopes", func(t *testing.T) {
		d := &recordingDispatcher{status: http.StatusOK, reply: `{"access_token":"t"}`}
		cc := NewClientCredentials(d, &recordingInstaller{}, "key", "secret", []string{"public"})

		_, err := cc.Exchange(t.Context())
		require.NoError(t, err)

		form, err := url.ParseQuery(d.body)
		require.NoError(t, err)
		require.Equal(t, "public", form.Get("scope"))
	})

	t.Run("rejected request leaves token untouched", func(t *testing.T) {
		d := &recordingDispatcher{
			status: http.StatusUnauthorized,
			reply:  `{"error":"Invalid client","error_code":8000}`,
		}
		i := &recordingInstaller{token: "previous"}

		_, err := NewClientCredentials(d, i, "key", "bad", nil).Exchange(t.Context())

		var apiErr *apierror.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, 8000, apiErr.Code)
		require.Equal(t, "previous", i.token)
	})

	t.Run("transport errors propagate", func(t *testing.T) {
		sentinel := errors.New("connection refused")
		d := &recordingDispatcher{err: sentinel}

		_, err := NewClientCredentials(d, &recordingInstaller{}, "key", "secret", nil).Exchange(t.Context())
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("requires key and secret", func(t *testing.T) {
		_, err := NewClientCredentials(&recordingDispatcher{}, &recordingInstaller{}, "key", "", nil).Exchange(t.Context())
		require.Error(t, err)
	})

	t.Run("missing access token is an error", func(t *testing.T) {
		d := &recordingDispatcher{status: http.StatusOK, reply: `{"token_type":"bearer"}`}
		_, err := NewClientCredentials(d, &recordingInstaller{}, "key", "secret", nil).Exchange(t.Context())
		require.ErrorContains(t, err, "no access_token")
	})
}

func TestAuthorizationCode(t *testing.T) {
	t.Parallel()

	endpoint := Endpoint("https://api.vimeo.com/")

	t.Run("endpoint", func(t *testing.T) {
		require.Equal(t, "https://api.vimeo.com/oauth/authorize", endpoint.AuthURL)
		require.Equal(t, "https://api.vimeo.com/oauth/access_token", endpoint.TokenURL)
	})

	t.Run("auth code url", func(t *testing.T) {
		ac := NewAuthorizationCode(&recordingDispatcher{}, &recordingInstaller{}, "key", "secret",
			endpoint, "http://127.0.0.1:8085/callback", []string{"public"})

		raw, err := ac.AuthCodeURL("state-123", "")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "api.vimeo.com", u.Host)
		require.Equal(t, AuthorizePath, u.Path)

		q := u.Query()
		require.Equal(t, "code", q.Get("response_type"))
		require.Equal(t, "key", q.Get("client_id"))
		require.Equal(t, "http://127.0.0.1:8085/callback", q.Get("redirect_uri"))
		require.Equal(t, "state-123", q.Get("state"))
		require.Equal(t, "public", q.Get("scope"))
	})

	t.Run("auth code url overrides", func(t *testing.T) {
		ac := NewAuthorizationCode(&recordingDispatcher{}, &recordingInstaller{}, "key", "secret",
			endpoint, "http://127.0.0.1:8085/callback", []string{"public"})

		raw, err := ac.AuthCodeURL("s", "https://app.example.com/cb", "public", "upload")
		require.NoError(t, err)
		require.Contains(t, raw, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcb")
		require.Contains(t, raw, "scope=public+upload")
	})

	t.Run("auth code url requires state and redirect", func(t *testing.T) {
		ac := NewAuthorizationCode(&recordingDispatcher{}, &recordingInstaller{}, "key", "secret", endpoint, "", nil)

		_, err := ac.AuthCodeURL("", "https://app.example.com/cb")
		require.ErrorContains(t, err, "state")

		_, err = ac.AuthCodeURL("s", "")
		require.ErrorContains(t, err, "redirect URL")
	})

	t.Run("exchange", func(t *testing.T) {
		d := &recordingDispatcher{
			status: http.StatusOK,
			reply:  `{"access_token":"user-token","token_type":"bearer","scope":"public upload","user":{"uri":"/users/1"}}`,
		}
		i := &recordingInstaller{}
		ac := NewAuthorizationCode(d, i, "key", "secret", endpoint, "http://127.0.0.1:8085/callback", nil)

		token, err := ac.Exchange(t.Context(), "the-code", "")
		require.NoError(t, err)

		require.Equal(t, endpoint.TokenURL, d.url)
		form, err := url.ParseQuery(d.body)
		require.NoError(t, err)
		require.Equal(t, "authorization_code", form.Get("grant_type"))
		require.Equal(t, "the-code", form.Get("code"))
		require.Equal(t, "http://127.0.0.1:8085/callback", form.Get("redirect_uri"))

		key, _, ok := d.req.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", key)

		require.Equal(t, "user-token", token.AccessToken)
		require.Equal(t, "user-token", i.token)
	})

	t.Run("exchange requires code", func(t *testing.T) {
		ac := NewAuthorizationCode(&recordingDispatcher{}, &recordingInstaller{}, "key", "secret", endpoint, "http://x", nil)
		_, err := ac.Exchange(t.Context(), "", "")
		require.ErrorContains(t, err, "authorization code cannot be empty")
	})
}

func TestParseCallback(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		code, err := ParseCallback(url.Values{"code": {"abc"}, "state": {"s1"}}, "s1")
		require.NoError(t, err)
		require.Equal(t, "abc", code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		_, err := ParseCallback(url.Values{"code": {"abc"}, "state": {"other"}}, "s1")
		require.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("provider error without state", func(t *testing.T) {
		_, err := ParseCallback(url.Values{"error": {"access_denied"}}, "s1")
		require.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("provider error", func(t *testing.T) {
		_, err := ParseCallback(url.Values{
			"error":             {"access_denied"},
			"error_description": {"The user denied access"},
			"state":             {"s1"},
		}, "s1")
		require.ErrorContains(t, err, "access_denied")
		require.ErrorContains(t, err, "The user denied access")
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := ParseCallback(url.Values{"state": {"s1"}}, "s1")
		require.ErrorContains(t, err, "missing authorization code")
	})
}
