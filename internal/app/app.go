package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/vimeo-client/internal/callback"
)

// ErrAuthorizationTimeout is returned when no redirect arrives in time.
var ErrAuthorizationTimeout = errors.New("timed out waiting for authorization")

// App runs the services of an interactive authorization-code login.
type App struct {
	cfg    CallbackConfig
	health *Health
	logger *slog.Logger
}

// New creates an App.
func New(cfg CallbackConfig, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		health: NewHealth(),
		logger: logger,
	}
}

// AwaitCode starts the callback server, calls begin with its redirect URL
// (typically to show the authorization URL) and blocks until a redirect with
// the matching state arrives, the timeout passes or ctx is canceled. Services
// are shut down before it returns.
func (a *App) AwaitCode(ctx context.Context, state string, begin func(ctx context.Context, redirectURL string) error) (string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, a.cfg.Timeout, ErrAuthorizationTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase
	server := callback.New(state, a.health, a.logger)
	serverErrCh, err := server.Start(gCtx, a.cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("callback server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, server.Shutdown)
	a.health.SetReady(true)

	var code string
	g.Go(func() error {
		if err := begin(gCtx, server.RedirectURL()); err != nil {
			return err
		}

		select {
		case res := <-server.Results():
			a.health.SetReady(false)
			if res.Err != nil {
				return res.Err
			}
			code = res.Code
			return nil
		case err, ok := <-serverErrCh:
			if ok && err != nil {
				a.logger.ErrorContext(gCtx, "callback server runtime error", "error", err)
				return fmt.Errorf("callback server: %w", err)
			}
			return errors.New("callback server stopped unexpectedly")
		case <-gCtx.Done():
			return context.Cause(gCtx)
		}
	})

	runtimeErr := g.Wait()
	a.health.SetReady(false)

	// Shutdown phase
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, runtimeErr)
	}
	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			a.logger.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return code, nil
}
