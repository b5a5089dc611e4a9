package vimeo

import (
	"context"
	"io"

	"golang.org/x/oauth2"

	"github.com/florianilch/vimeo-client/internal/auth"
	"github.com/florianilch/vimeo-client/internal/upload"
)

// The client is the only seam the capabilities see.
var (
	_ auth.Dispatcher     = (*Client)(nil)
	_ auth.TokenInstaller = (*Client)(nil)
	_ upload.Dispatcher   = (*Client)(nil)
)

var errNoApp = &ConfigurationError{Reason: "OAuth2 flows require an application key and secret"}

// AuthorizeClientCredentials obtains an application token with the
// client-credentials grant and installs it. Empty scopes use the defaults.
func (c *Client) AuthorizeClientCredentials(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	if c.clientCredentials == nil {
		return nil, errNoApp
	}
	return c.clientCredentials.Exchange(ctx, scopes...)
}

// AuthorizationURL returns the URL a user visits to authorize the
// application. state must be verified when the redirect arrives.
func (c *Client) AuthorizationURL(redirectURL, state string, scopes ...string) (string, error) {
	if c.authorizationCode == nil {
		return "", errNoApp
	}
	return c.authorizationCode.AuthCodeURL(state, redirectURL, scopes...)
}

// ExchangeCode trades an authorization code for a user token and installs
// it. redirectURL must match the one used for AuthorizationURL.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	if c.authorizationCode == nil {
		return nil, errNoApp
	}
	return c.authorizationCode.Exchange(ctx, code, redirectURL)
}

// Upload uploads the file at path and returns the URI of the new video.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	if !c.HasToken() {
		return "", &ConfigurationError{Reason: "uploading requires an access token"}
	}
	return c.uploader.UploadFile(ctx, path)
}

// UploadReader uploads size bytes from r and returns the URI of the new video.
func (c *Client) UploadReader(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	if !c.HasToken() {
		return "", &ConfigurationError{Reason: "uploading requires an access token"}
	}
	return c.uploader.Upload(ctx, r, size)
}

// TokenSource exposes the current token to golang.org/x/oauth2 consumers.
// The token is read on every call, so rotations are picked up.
func (c *Client) TokenSource() oauth2.TokenSource {
	return tokenSource{c}
}

type tokenSource struct {
	client *Client
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	raw := s.client.Token()
	if raw == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
}
