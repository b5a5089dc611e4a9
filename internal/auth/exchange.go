package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/transport"
)

// Dispatcher issues POST requests against the API. Relative URLs are resolved
// against the API root by the implementation.
type Dispatcher interface {
	Post(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error)
}

// TokenInstaller receives access tokens obtained by a strategy.
type TokenInstaller interface {
	SetToken(raw string)
}

// basicAuth authenticates token endpoint requests with the application
// key and secret.
type basicAuth struct {
	key    string
	secret string
}

// Compile-time check that basicAuth implements transport.AuthStrategy.
var _ transport.AuthStrategy = basicAuth{}

func (b basicAuth) Apply(req *http.Request) *http.Request {
	req.SetBasicAuth(b.key, b.secret)
	return req
}

// tokenResponse is the token endpoint payload. Vimeo omits expires_in for
// tokens that do not expire.
type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	Scope        string          `json:"scope"`
	ExpiresIn    int64           `json:"expires_in"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
	App          json.RawMessage `json:"app"`
}

// exchange posts form to a token endpoint with Basic auth and installs the
// resulting access token.
func exchange(
	ctx context.Context,
	dispatcher Dispatcher,
	installer TokenInstaller,
	tokenURL string,
	creds basicAuth,
	form url.Values,
) (*oauth2.Token, error) {
	now := time.Now()
	resp, err := dispatcher.Post(ctx, tokenURL,
		transport.WithForm(form),
		transport.WithAuth(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	if err := apierror.Check(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("token request rejected: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	token := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
	}
	// Convert ExpiresIn to Expiry (see oauth2.Token.ExpiresIn field documentation)
	if payload.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	token = token.WithExtra(map[string]any{
		"scope": payload.Scope,
		"user":  payload.User,
		"app":   payload.App,
	})

	installer.SetToken(token.AccessToken)

	return token, nil
}
