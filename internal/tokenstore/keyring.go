package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Default keyring coordinates.
const (
	DefaultKeyringService = "vimeo-client"
	DefaultKeyringUser    = "default"
)

// Keyring stores the token in the OS keyring (Keychain, Secret Service,
// Windows Credential Manager).
type Keyring struct {
	service string
	user    string
}

var _ Store = (*Keyring)(nil)

// NewKeyring creates a Keyring store. Empty arguments select the defaults.
func NewKeyring(service, user string) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	if user == "" {
		user = DefaultKeyringUser
	}
	return &Keyring{service: service, user: user}
}

func (k *Keyring) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return token, nil
}

func (k *Keyring) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if token == "" {
		err := keyring.Delete(k.service, k.user)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("clearing keyring: %w", err)
		}
		return nil
	}

	if err := keyring.Set(k.service, k.user, token); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}
