package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fitAuth "github.com/fitgoal/fitAuth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fitauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func serveFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	def := fitAuth.DefaultConfig()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, def.JWT.TTL, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
  read_header_timeout: 3s
database:
  url: postgres://fit:fit@db:5432/fit
auth:
  jwt_secret: `+testSecret+`
  token_ttl: 2h
  issue_token_on_register: true
metrics:
  enabled: false
`)

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout, "unset keys keep their defaults")
	assert.Equal(t, "postgres://fit:fit@db:5432/fit", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.IssueTokenOnRegister)
	assert.False(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.validateServe())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \":9090\"\n")
	t.Setenv("FITAUTH_HTTP_ADDR", ":7000")
	t.Setenv("FITAUTH_AUTH_JWT_SECRET", testSecret)
	t.Setenv("FITAUTH_AUTH_UNIFORM_LOGIN_FAILURE", "true")
	t.Setenv("FITAUTH_HTTP_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.UniformLoginFailure)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FITAUTH_HTTP_ADDR", ":7000")
	t.Setenv("FITAUTH_LOG_LEVEL", "debug")

	cfg, err := loadConfig("", serveFlags(t, "--http.addr=:9999", "--database.auto_migrate"))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "debug", cfg.Log.Level, "an unset flag must not mask the environment")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidateServe(t *testing.T) {
	valid := func() serverConfig {
		cfg := defaultServerConfig()
		cfg.Database.URL = "postgres://localhost/fit"
		cfg.Auth.JWTSecret = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*serverConfig)
		wantErr string
	}{
		{"valid", func(*serverConfig) {}, ""},
		{"missing database", func(c *serverConfig) { c.Database.URL = " " }, "database.url is required"},
		{"missing secret", func(c *serverConfig) { c.Auth.JWTSecret = "" }, "auth.jwt_secret is required"},
		{"short secret", func(c *serverConfig) { c.Auth.JWTSecret = "short" }, "at least 32 bytes"},
		{"missing redis", func(c *serverConfig) { c.Redis.Addr = "" }, "redis.addr is required"},
		{"missing listen address", func(c *serverConfig) { c.HTTP.Addr = "" }, "http.addr is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validateServe()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.jwt_secret", envKey("FITAUTH_AUTH_JWT_SECRET"))
	assert.Equal(t, "http.addr", envKey("FITAUTH_HTTP_ADDR"))
	assert.Equal(t, "database.auto_migrate", envKey("FITAUTH_DATABASE_AUTO_MIGRATE"))
	assert.Equal(t, "debug", envKey("FITAUTH_DEBUG"))
}

func TestEngineConfig(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.Issuer = "fitgoal"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.IssueTokenOnRegister = true
	cfg.Audit.Enabled = true

	ec := cfg.engineConfig()
	assert.Equal(t, []byte(testSecret), ec.JWT.Secret)
	assert.Equal(t, "fitgoal", ec.JWT.Issuer)
	assert.Equal(t, time.Hour, ec.JWT.TTL)
	assert.True(t, ec.Account.IssueTokenOnRegister)
	assert.True(t, ec.Audit.Enabled)
	assert.True(t, ec.Metrics.Enabled)
	require.NoError(t, ec.Validate())

	cfg.Auth.TokenTTL = 0
	assert.Equal(t, fitAuth.DefaultConfig().JWT.TTL, cfg.engineConfig().JWT.TTL, "zero TTL keeps the engine default")
}
