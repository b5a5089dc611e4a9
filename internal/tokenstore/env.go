package tokenstore

import (
	"context"
	"strings"
)

// DefaultEnvKey is the variable Env reads when none is configured.
const DefaultEnvKey = "VIMEO_TOKEN"

// Env reads the token from an environment variable.
type Env struct {
	key     string
	environ func() []string
}

var _ Store = (*Env)(nil)

// NewEnv creates an Env store reading key from environ, typically os.Environ.
func NewEnv(key string, environ func() []string) *Env {
	if key == "" {
		key = DefaultEnvKey
	}
	return &Env{key: key, environ: environ}
}

func (e *Env) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prefix := e.key + "="
	for _, kv := range e.environ() {
		if value, ok := strings.CutPrefix(kv, prefix); ok && value != "" {
			return value, nil
		}
	}
	return "", ErrNotFound
}

// Write always fails with ErrReadOnly.
func (e *Env) Write(context.Context, string) error {
	return ErrReadOnly
}
