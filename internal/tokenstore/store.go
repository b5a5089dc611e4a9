// Package tokenstore persists Vimeo access tokens between CLI invocations.
//
// Three backends are available: environment variables (read-only), a plain
// file with owner-only permissions and the OS keyring. All of them treat
// writing an empty token as clearing it.
package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when no token is stored.
var ErrNotFound = errors.New("no token stored")

// ErrReadOnly is returned by Write on stores that cannot be written.
var ErrReadOnly = errors.New("token store is read-only")

// Store reads and writes a single access token.
type Store interface {
	// Read returns the stored token or ErrNotFound.
	Read(ctx context.Context) (string, error)

	// Write stores token. An empty token removes the stored one.
	Write(ctx context.Context, token string) error
}
