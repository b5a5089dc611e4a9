package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Authorization-code endpoints, relative to the API root.
const (
	AuthorizePath   = "/oauth/authorize"
	AccessTokenPath = "/oauth/access_token"
)

// Endpoint returns the OAuth2 endpoint for an API root.
func Endpoint(apiRoot string) oauth2.Endpoint {
	root := strings.TrimSuffix(apiRoot, "/")
	return oauth2.Endpoint{
		AuthURL:   root + AuthorizePath,
		TokenURL:  root + AccessTokenPath,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

// AuthorizationCode handles the OAuth2 authorization-code flow: it builds the
// URL the user visits and exchanges the returned code for an access token.
//
// The redirect itself (browser, callback listener) is the caller's concern.
type AuthorizationCode struct {
	dispatcher Dispatcher
	installer  TokenInstaller
	config     *oauth2.Config
}

// NewAuthorizationCode creates the strategy. redirectURL and scopes are
// defaults; both can be overridden per call.
func NewAuthorizationCode(
	dispatcher Dispatcher,
	installer TokenInstaller,
	key, secret string,
	endpoint oauth2.Endpoint,
	redirectURL string,
	scopes []string,
) *AuthorizationCode {
	return &AuthorizationCode{
		dispatcher: dispatcher,
		installer:  installer,
		config: &oauth2.Config{
			ClientID:     key,
			ClientSecret: secret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
	}
}

// AuthCodeURL returns the URL the user must visit to authorize the
// application. state is echoed back on the redirect and must be verified by
// the caller. Empty redirectURL or scopes fall back to the defaults.
func (a *AuthorizationCode) AuthCodeURL(state, redirectURL string, scopes ...string) (string, error) {
	if state == "" {
		return "", errors.New("state cannot be empty")
	}

	cfg := a.withOverrides(redirectURL, scopes)
	if cfg.RedirectURL == "" {
		return "", errors.New("redirect URL cannot be empty")
	}

	return cfg.AuthCodeURL(state), nil
}

// Exchange trades an authorization code for an access token and installs it.
// redirectURL must match the one used to build the authorization URL.
func (a *AuthorizationCode) Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, errors.New("authorization code cannot be empty")
	}

	cfg := a.withOverrides(redirectURL, nil)
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL cannot be empty")
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {cfg.RedirectURL},
	}

	token, err := exchange(ctx, a.dispatcher, a.installer, cfg.Endpoint.TokenURL,
		basicAuth{key: cfg.ClientID, secret: cfg.ClientSecret}, form)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return token, nil
}

func (a *AuthorizationCode) withOverrides(redirectURL string, scopes []string) oauth2.Config {
	cfg := *a.config
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg
}

// ErrStateMismatch is returned for redirects that do not carry the state of
// the pending authorization request.
var ErrStateMismatch = errors.New("state mismatch")

// ParseCallback extracts the authorization code from a redirect URL query,
// verifying state first. Provider errors ("error", "error_description") are
// returned as errors.
func ParseCallback(query url.Values, wantState string) (string, error) {
	if query.Get("state") != wantState {
		return "", ErrStateMismatch
	}

	if errCode := query.Get("error"); errCode != "" {
		if desc := query.Get("error_description"); desc != "" {
			return "", fmt.Errorf("authorization failed: %s: %s", errCode, desc)
		}
		return "", fmt.Errorf("authorization failed: %s", errCode)
	}

	code := query.Get("code")
	if code == "" {
		return "", errors.New("missing authorization code")
	}

	return code, nil
}
