package vimeo

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/florianilch/vimeo-client/internal/transport"
)

// Token is an immutable bearer credential. A held Token is never empty;
// rotating credentials replaces the Token instead of changing it.
type Token struct {
	secret string
}

// Compile-time checks for the interfaces Token implements.
var (
	_ transport.AuthStrategy = (*Token)(nil)
	_ slog.LogValuer         = (*Token)(nil)
)

// NewToken wraps secret. It fails on an empty secret.
func NewToken(secret string) (*Token, error) {
	if secret == "" {
		return nil, errors.New("token cannot be empty")
	}
	return &Token{secret: secret}, nil
}

// Apply sets the Authorization header of req to "Bearer <secret>".
func (t *Token) Apply(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+t.secret)
	return req
}

// String returns the raw secret.
func (t *Token) String() string {
	return t.secret
}

// LogValue keeps the secret out of logs.
func (t *Token) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
