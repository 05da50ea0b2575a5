package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/fitgoal/fitAuth/jwt"
)

const envPrefix = "FITAUTH_"

type httpConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	TrustProxy        bool          `koanf:"trust_proxy"`
}

type databaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type redisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type authConfig struct {
	JWTSecret            string        `koanf:"jwt_secret"`
	TokenTTL             time.Duration `koanf:"token_ttl"`
	Issuer               string        `koanf:"issuer"`
	Audience             string        `koanf:"audience"`
	IssueTokenOnRegister bool          `koanf:"issue_token_on_register"`
	UniformLoginFailure  bool          `koanf:"uniform_login_failure"`
	UniformAuthFailures  bool          `koanf:"uniform_auth_failures"`
	ResetTokenTTL        time.Duration `koanf:"reset_token_ttl"`
}

type metricsConfig struct {
	Enabled           bool `koanf:"enabled"`
	LatencyHistograms bool `koanf:"latency_histograms"`
}

type auditConfig struct {
	Enabled bool `koanf:"enabled"`
}

// serverConfig is the complete fitauth configuration.
type serverConfig struct {
	HTTP     httpConfig     `koanf:"http"`
	Database databaseConfig `koanf:"database"`
	Redis    redisConfig    `koanf:"redis"`
	Log      logConfig      `koanf:"log"`
	Auth     authConfig     `koanf:"auth"`
	Metrics  metricsConfig  `koanf:"metrics"`
	Audit    auditConfig    `koanf:"audit"`
}

func defaultServerConfig() serverConfig {
	engine := fitAuth.DefaultConfig()
	return serverConfig{
		HTTP: httpConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Redis: redisConfig{Addr: "localhost:6379"},
		Log:   logConfig{Level: "info", Format: "json"},
		Auth: authConfig{
			TokenTTL:      engine.JWT.TTL,
			ResetTokenTTL: engine.PasswordReset.TokenTTL,
		},
		Metrics: metricsConfig{Enabled: true},
	}
}

// envKey maps FITAUTH_AUTH_JWT_SECRET to auth.jwt_secret. Only the first
// underscore separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// loadConfig layers the config file, the environment and changed flags
// over the defaults. flags may be nil.
func loadConfig(path string, flags *pflag.FlagSet) (serverConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return serverConfig{}, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return serverConfig{}, oops.Code("CONFIG_INVALID").With("operation", "load environment").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return serverConfig{}, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
		}
	}

	cfg := defaultServerConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return serverConfig{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	return cfg, nil
}

// validate checks what every command needs. Serve additionally needs the
// secret; see validateServe.
func (c serverConfig) validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	return nil
}

func (c serverConfig) validateServe() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < jwt.MinSecretLength {
		return oops.Code("CONFIG_INVALID").Errorf("auth.jwt_secret must be at least %d bytes", jwt.MinSecretLength)
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("redis.addr is required")
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	return nil
}

// engineConfig derives the Engine configuration.
func (c serverConfig) engineConfig() fitAuth.Config {
	cfg := fitAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(c.Auth.JWTSecret)
	cfg.JWT.Issuer = c.Auth.Issuer
	cfg.JWT.Audience = c.Auth.Audience
	if c.Auth.TokenTTL > 0 {
		cfg.JWT.TTL = c.Auth.TokenTTL
	}
	if c.Auth.ResetTokenTTL > 0 {
		cfg.PasswordReset.TokenTTL = c.Auth.ResetTokenTTL
	}
	cfg.Account.IssueTokenOnRegister = c.Auth.IssueTokenOnRegister
	cfg.Login.UniformFailure = c.Auth.UniformLoginFailure
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms
	cfg.Audit.Enabled = c.Audit.Enabled
	return cfg
}
