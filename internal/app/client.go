package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/florianilch/vimeo-client/internal/tokenstore"
	"github.com/florianilch/vimeo-client/internal/transport"
	"github.com/florianilch/vimeo-client/internal/vimeo"
)

// NewClient builds a Vimeo client from cfg. A configured token wins over a
// stored one; without either, the client relies on the application key and
// secret.
func NewClient(ctx context.Context, cfg *Config, store tokenstore.Store, logger *slog.Logger) (*vimeo.Client, error) {
	token := cfg.Auth.Token
	if token == "" && store != nil {
		stored, err := store.Read(ctx)
		switch {
		case err == nil:
			token = stored
			logger.DebugContext(ctx, "using stored access token")
		case errors.Is(err, tokenstore.ErrNotFound):
		default:
			return nil, fmt.Errorf("reading stored token: %w", err)
		}
	}

	lib := transport.New(cfg.HTTP.TransportOptions(logger)...)

	client, err := vimeo.New(
		vimeo.Credentials{Token: token, Key: cfg.Auth.Key, Secret: cfg.Auth.Secret},
		vimeo.WithTransport(lib),
		vimeo.WithAPIRoot(cfg.API.Root),
		vimeo.WithAcceptHeader(cfg.API.Accept),
		vimeo.WithLogger(logger),
		vimeo.WithScopes(cfg.Auth.Scopes...),
		vimeo.WithRedirectURL(cfg.Auth.RedirectURL),
		vimeo.WithUploadOptions(cfg.Upload.Options()...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}
