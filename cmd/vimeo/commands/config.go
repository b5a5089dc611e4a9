package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/florianilch/vimeo-client/internal/app"
)

// flagKeys maps global flags onto config keys. Flags override every other
// source, but only when set explicitly.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-exporter": "log.exporter",
	"token":        "auth.token",
	"key":          "auth.key",
	"secret":       "auth.secret",
}

// loadConfig layers defaults, the config file, VIMEO_* variables and flags.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	return app.LoadConfig(path, overrides, environ)
}
