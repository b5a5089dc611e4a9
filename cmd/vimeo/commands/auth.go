package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/app"
	"github.com/florianilch/vimeo-client/internal/tokenstore"
	"github.com/florianilch/vimeo-client/internal/vimeo"
)

// verifyPath describes the token a request was made with.
const verifyPath = "/oauth/verify"

// authCommand returns the 'auth' subcommand for managing access tokens.
func authCommand(environ func() []string) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Vimeo authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize as a Vimeo user and save the access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "paste",
						Usage: "paste the authorization code instead of running a local callback server",
					},
					&cli.StringSliceFlag{
						Name:  "scope",
						Usage: "scopes to request (default: configured scopes)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return authLoginAction(ctx, cmd, environ)
				},
			},
			{
				Name:  "client",
				Usage: "Obtain an application token with the client credentials grant and save it",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "scope",
						Usage: "scopes to request (default: configured scopes)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return authClientAction(ctx, cmd, environ)
				},
			},
			{
				Name:  "logout",
				Usage: "Clear the saved access token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return authLogoutAction(ctx, cmd, environ)
				},
			},
			{
				Name:  "status",
				Usage: "Show the user, app and scopes of the current token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return authStatusAction(ctx, cmd, environ)
				},
			},
		},
	}
}

// writableStore rejects env storage, which is read-only.
func writableStore(e *env) (tokenstore.Store, error) {
	if e.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return nil, fmt.Errorf("cannot save tokens with env storage (read-only). Configure file or keyring storage")
	}
	return e.tokenStore()
}

// appClient builds a client from the application credentials only, so a
// stored token does not leak into the token exchange.
func appClient(ctx context.Context, e *env) (*vimeo.Client, error) {
	cfg := *e.cfg
	cfg.Auth.Token = ""
	return app.NewClient(ctx, &cfg, nil, e.logger)
}

// authLoginAction runs the authorization-code flow.
func authLoginAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	store, err := writableStore(e)
	if err != nil {
		return err
	}

	client, err := appClient(ctx, e)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	scopes := cmd.StringSlice("scope")
	state := oauth2.GenerateVerifier()

	var code, redirectURL string
	if cmd.Bool("paste") {
		redirectURL = e.cfg.Auth.RedirectURL
		if redirectURL == "" {
			return errors.New("--paste requires auth.redirect_url to be configured")
		}
		if err := printAuthorizationURL(out, client, redirectURL, state, scopes); err != nil {
			return err
		}
		fmt.Fprintln(out, "3. Paste the code parameter of the URL you were redirected to")

		code, err = readSecureInput(ctx, out, "\nEnter authorization code: ")
		if err != nil {
			return err
		}
		if code == "" {
			return errors.New("authorization code cannot be empty")
		}
	} else {
		application := app.New(e.cfg.Callback, e.logger)
		code, err = application.AwaitCode(ctx, state, func(ctx context.Context, callbackURL string) error {
			redirectURL = callbackURL
			if e.cfg.Auth.RedirectURL != "" {
				redirectURL = e.cfg.Auth.RedirectURL
			}
			if err := printAuthorizationURL(out, client, redirectURL, state, scopes); err != nil {
				return err
			}
			fmt.Fprintln(out, "Waiting for the redirect...")
			return nil
		})
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
	}

	if _, err := client.ExchangeCode(ctx, code, redirectURL); err != nil {
		return fmt.Errorf("oauth login failed: %w", err)
	}

	if err := store.Write(ctx, client.Token()); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Login Successful ===")
	fmt.Fprintln(out, "Token saved to configured storage")

	return nil
}

func printAuthorizationURL(out io.Writer, client *vimeo.Client, redirectURL, state string, scopes []string) error {
	authURL, err := client.AuthorizationURL(redirectURL, state, scopes...)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Vimeo OAuth Login ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "1. Visit this URL in your browser:\n   %s\n\n", authURL)
	fmt.Fprintln(out, "2. Authorize the application")
	return nil
}

// authClientAction runs the client-credentials flow.
func authClientAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	store, err := writableStore(e)
	if err != nil {
		return err
	}

	client, err := appClient(ctx, e)
	if err != nil {
		return err
	}

	token, err := client.AuthorizeClientCredentials(ctx, cmd.StringSlice("scope")...)
	if err != nil {
		return fmt.Errorf("client credentials exchange failed: %w", err)
	}

	if err := store.Write(ctx, token.AccessToken); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	out := cmd.Root().Writer
	fmt.Fprintln(out, "=== Application Token Saved ===")
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		fmt.Fprintf(out, "Scopes: %s\n", scope)
	}

	return nil
}

// authLogoutAction clears the stored token.
func authLogoutAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	store, err := writableStore(e)
	if err != nil {
		return err
	}

	// Clear token via empty string write to maintain storage abstraction
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	out := cmd.Root().Writer
	fmt.Fprintln(out, "=== Logout Successful ===")
	fmt.Fprintln(out, "Credentials cleared from configured storage")

	return nil
}

// verifyResponse is the subset of /oauth/verify that status prints.
type verifyResponse struct {
	Scope string `json:"scope"`
	App   struct {
		Name string `json:"name"`
	} `json:"app"`
	User *struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	} `json:"user"`
}

// authStatusAction describes the current token.
func authStatusAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	client, err := e.client(ctx)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if !client.HasToken() {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}

	resp, err := client.Get(ctx, verifyPath)
	if err != nil {
		return fmt.Errorf("verifying token: %w", err)
	}
	if err := apierror.Check(resp, http.StatusOK); err != nil {
		return fmt.Errorf("verifying token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var verified verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		return fmt.Errorf("decoding token info: %w", err)
	}

	fmt.Fprintf(out, "App:    %s\n", verified.App.Name)
	if verified.User != nil {
		fmt.Fprintf(out, "User:   %s (%s)\n", verified.User.Name, verified.User.URI)
	} else {
		fmt.Fprintln(out, "User:   none (application token)")
	}
	fmt.Fprintf(out, "Scopes: %s\n", strings.Join(strings.Fields(verified.Scope), ", "))

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	defer fmt.Fprintln(out)

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return strings.TrimSpace(res.value), nil
	}
}
