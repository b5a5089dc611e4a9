package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/vimeo-client/internal/tokenstore"
	"github.com/florianilch/vimeo-client/internal/transport"
	"github.com/florianilch/vimeo-client/internal/upload"
	"github.com/florianilch/vimeo-client/internal/vimeo"
)

// EnvPrefix namespaces configuration variables. Nested keys use a double
// underscore: VIMEO_AUTH__KEY sets auth.key.
const EnvPrefix = "VIMEO_"

// TokenStorageType selects where access tokens are persisted.
type TokenStorageType string

const (
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Config is the complete client configuration.
type Config struct {
	Auth     AuthConfig     `koanf:"auth"`
	API      APIConfig      `koanf:"api"`
	HTTP     HTTPConfig     `koanf:"http"`
	Upload   UploadConfig   `koanf:"upload"`
	Log      LogConfig      `koanf:"log"`
	Callback CallbackConfig `koanf:"callback"`
}

// AuthConfig holds credential material and token persistence settings.
type AuthConfig struct {
	// Token is a pre-shared access token. It takes precedence over a stored one.
	Token  string `koanf:"token"`
	Key    string `koanf:"key"`
	Secret string `koanf:"secret"`

	Scopes      []string `koanf:"scopes" validate:"dive,required"`
	RedirectURL string   `koanf:"redirect_url" validate:"omitempty,http_url"`

	Storage TokenStorageType `koanf:"storage" validate:"oneof=env file keyring"`
	EnvKey  string           `koanf:"env_key"`
	File    string           `koanf:"file"`
	Keyring KeyringConfig    `koanf:"keyring"`
}

// KeyringConfig addresses the keyring entry.
type KeyringConfig struct {
	Service string `koanf:"service"`
	User    string `koanf:"user"`
}

// APIConfig points the client at an API deployment.
type APIConfig struct {
	Root   string `koanf:"root" validate:"required,http_url"`
	Accept string `koanf:"accept" validate:"required"`
}

// HTTPConfig tunes the transport.
type HTTPConfig struct {
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`
	RetryMax     int           `koanf:"retry_max" validate:"gte=0,lte=10"`
	RetryWaitMin time.Duration `koanf:"retry_wait_min" validate:"gte=0"`
	RetryWaitMax time.Duration `koanf:"retry_wait_max" validate:"gtefield=RetryWaitMin"`
	RateLimit    float64       `koanf:"rate_limit" validate:"gte=0"`
	Burst        int           `koanf:"burst" validate:"gte=0"`
}

// UploadConfig tunes streaming uploads.
type UploadConfig struct {
	MaxAttempts int    `koanf:"max_attempts" validate:"gte=1"`
	ContentType string `koanf:"content_type" validate:"required"`
}

// LogConfig configures observability.Instrument.
type LogConfig struct {
	Level    string `koanf:"level" validate:"oneof=debug info warn error"`
	Format   string `koanf:"format" validate:"oneof=text json"`
	Exporter string `koanf:"exporter" validate:"oneof=none stdout otlp-http otlp-grpc"`
}

// CallbackConfig configures the loopback server of the authorization-code
// login.
type CallbackConfig struct {
	Addr    string        `koanf:"addr" validate:"required,hostname_port"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]any {
	return map[string]any{
		"auth.scopes":          []string{"public"},
		"auth.storage":         string(TokenStorageTypeFile),
		"auth.env_key":         tokenstore.DefaultEnvKey,
		"auth.keyring.service": tokenstore.DefaultKeyringService,
		"auth.keyring.user":    tokenstore.DefaultKeyringUser,
		"api.root":             vimeo.APIRoot,
		"api.accept":           vimeo.AcceptHeader,
		"http.timeout":         "0s",
		"http.retry_max":       3,
		"http.retry_wait_min":  "1s",
		"http.retry_wait_max":  "10s",
		"http.rate_limit":      0.0,
		"http.burst":           1,
		"upload.max_attempts":  5,
		"upload.content_type":  "video/mp4",
		"log.level":            "info",
		"log.format":           "text",
		"log.exporter":         "none",
		"callback.addr":        "127.0.0.1:8085",
		"callback.timeout":     "5m",
	}
}

// LoadConfig layers, lowest precedence first: Defaults, the TOML file at path
// (skipped when path is empty), VIMEO_* variables from environ and overrides.
// The result is validated.
func LoadConfig(path string, overrides map[string]any, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformEnv maps VIMEO_AUTH__KEY to auth.key. Comma-separated scopes
// become a list.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "auth.scopes" {
		return key, strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return key, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("parsing log level: %w", err)
	}
	return level, nil
}

// NewTokenStore creates the configured token store.
func (a AuthConfig) NewTokenStore(environ func() []string) (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeEnv:
		return tokenstore.NewEnv(a.EnvKey, environ), nil
	case TokenStorageTypeFile:
		return tokenstore.NewFile(a.File)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyring(a.Keyring.Service, a.Keyring.User), nil
	default:
		return nil, fmt.Errorf("unknown token storage %q", a.Storage)
	}
}

// TransportOptions translates the HTTP settings into transport options.
func (h HTTPConfig) TransportOptions(logger *slog.Logger) []transport.ClientOption {
	return []transport.ClientOption{
		transport.WithTimeout(h.Timeout),
		transport.WithRetry(h.RetryMax, h.RetryWaitMin, h.RetryWaitMax),
		transport.WithRateLimit(h.RateLimit, h.Burst),
		transport.WithLogger(logger),
	}
}

// Options translates the upload settings into uploader options.
func (u UploadConfig) Options() []upload.Option {
	return []upload.Option{
		upload.WithMaxAttempts(u.MaxAttempts),
		upload.WithContentType(u.ContentType),
	}
}

// LogValue keeps secrets out of logs.
func (a AuthConfig) LogValue() slog.Value {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "[REDACTED]"
	}
	return slog.GroupValue(
		slog.String("token", redact(a.Token)),
		slog.String("key", a.Key),
		slog.String("secret", redact(a.Secret)),
		slog.Any("scopes", a.Scopes),
		slog.String("storage", string(a.Storage)),
	)
}
