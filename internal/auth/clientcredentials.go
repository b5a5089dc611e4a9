package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// ClientCredentialsPath is the client-credentials token endpoint, relative to
// the API root.
const ClientCredentialsPath = "/oauth/authorize/client"

// ClientCredentials obtains application tokens (no end user) with the
// OAuth2 client-credentials grant.
type ClientCredentials struct {
	dispatcher Dispatcher
	installer  TokenInstaller
	creds      basicAuth
	scopes     []string
	tokenURL   string
}

// NewClientCredentials creates the strategy. scopes are the defaults used
// when Exchange is called without explicit scopes.
func NewClientCredentials(dispatcher Dispatcher, installer TokenInstaller, key, secret string, scopes []string) *ClientCredentials {
	return &ClientCredentials{
		dispatcher: dispatcher,
		installer:  installer,
		creds:      basicAuth{key: key, secret: secret},
		scopes:     scopes,
		tokenURL:   ClientCredentialsPath,
	}
}

// Exchange requests an application token and installs it on success.
func (c *ClientCredentials) Exchange(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.creds.key == "" || c.creds.secret == "" {
		return nil, errors.New("client credentials require an application key and secret")
	}

	if len(scopes) == 0 {
		scopes = c.scopes
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	return exchange(ctx, c.dispatcher, c.installer, c.tokenURL, c.creds, form)
}
