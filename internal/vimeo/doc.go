// Package vimeo provides an authenticated client handle for the Vimeo API.
//
// A Client is built from either a pre-shared access token or an application
// key and secret:
//
//	client, err := vimeo.New(vimeo.Credentials{Token: os.Getenv("VIMEO_TOKEN")})
//	resp, err := client.Get(ctx, "/me")
//
// With only a key and secret the client has no token until an OAuth2 flow
// installs one:
//
//	client, err := vimeo.New(vimeo.Credentials{Key: key, Secret: secret})
//	_, err = client.AuthorizeClientCredentials(ctx, "public")
//
// # Dispatch
//
// Requests go through a Caller obtained with Lookup (or the Get, Post, ...
// shorthands). Only head, get, post, put, patch, options and delete are
// dispatched. Every request gets:
//   - Accept: AcceptHeader, replacing any Accept header set by the caller
//   - the API root prefixed unless the URL starts with "http"
//   - Authorization: Bearer <token> when a token is held
//
// Overriding Accept per request is not supported; use WithAcceptHeader to pin
// a different API version for the whole client.
//
// Responses are returned as the transport produced them. Non-2xx statuses
// are not errors here and nothing is retried by the client itself.
//
// # Concurrency
//
// Requests may be issued from multiple goroutines. Credential rotation via
// SetToken (or an OAuth2 exchange) is not safe for concurrent use without
// external synchronization. A request keeps the token it started with.
package vimeo
