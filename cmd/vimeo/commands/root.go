package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/vimeo-client/internal/app"
	"github.com/florianilch/vimeo-client/internal/observability"
	"github.com/florianilch/vimeo-client/internal/tokenstore"
	"github.com/florianilch/vimeo-client/internal/vimeo"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	return newRootCommand(version, commit, os.Environ).Run(ctx, args)
}

func newRootCommand(version, commit string, environ func() []string) *cli.Command {
	return &cli.Command{
		Name:    "vimeo",
		Usage:   "Vimeo API client",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
			},
			&cli.StringFlag{
				Name:  "log-exporter",
				Usage: "additional OpenTelemetry log exporter (none|stdout|otlp-http|otlp-grpc)",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "access token, overrides the stored one",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "application client identifier",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "application client secret",
			},
		},
		Commands: []*cli.Command{
			authCommand(environ),
			requestCommand(environ),
			uploadCommand(environ),
		},
	}
}

// env bundles what every action needs.
type env struct {
	cfg      *app.Config
	logger   *slog.Logger
	environ  func() []string
	shutdown func(context.Context) error
}

// setup loads the configuration and installs logging. Callers must defer
// close.
func setup(ctx context.Context, cmd *cli.Command, environ func() []string) (*env, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:    level,
		Format:   cfg.Log.Format,
		Exporter: cfg.Log.Exporter,
		Output:   cmd.Root().ErrWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	logger := slog.Default()
	logger.DebugContext(ctx, "configuration loaded", "auth", cfg.Auth, "api_root", cfg.API.Root)

	return &env{cfg: cfg, logger: logger, environ: environ, shutdown: shutdown}, nil
}

func (e *env) close(ctx context.Context) {
	if err := e.shutdown(context.WithoutCancel(ctx)); err != nil {
		e.logger.WarnContext(ctx, "failed to flush logs", "error", err)
	}
}

func (e *env) tokenStore() (tokenstore.Store, error) {
	store, err := e.cfg.Auth.NewTokenStore(e.environ)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	return store, nil
}

// client builds a client holding the configured or stored token.
func (e *env) client(ctx context.Context) (*vimeo.Client, error) {
	store, err := e.tokenStore()
	if err != nil {
		return nil, err
	}
	return app.NewClient(ctx, e.cfg, store, e.logger)
}
