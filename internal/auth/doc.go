// Package auth provides OAuth2 token acquisition for the Vimeo API.
//
// Vimeo's OAuth2 endpoints differ from a stock golang.org/x/oauth2 setup in a
// few ways:
//   - Client credentials use a dedicated endpoint (/oauth/authorize/client)
//   - Token endpoints require the API's versioned Accept header
//   - Token responses embed the authorized user and app objects
//
// Token requests therefore go through the client's own dispatcher (see
// Dispatcher) rather than oauth2.Config.Exchange, so they carry the same
// headers as every other API call. The strategies only touch the client
// through Dispatcher and TokenInstaller and know nothing about each other.
//
// # Client Credentials
//
//	cc := auth.NewClientCredentials(client, client, key, secret, []string{"public"})
//	token, err := cc.Exchange(ctx)
//
// # Authorization Code
//
//	ac := auth.NewAuthorizationCode(client, client, key, secret,
//	  auth.Endpoint("https://api.vimeo.com"), redirectURL, []string{"public", "upload"})
//	state := oauth2.GenerateVerifier() // Save for the callback
//	authURL, err := ac.AuthCodeURL(state, "")
//	// After the user authorizes, Vimeo redirects to redirectURL?code=...&state=...
//	code, err := auth.ParseCallback(callbackQuery, state)
//	token, err := ac.Exchange(ctx, code, "")
package auth
