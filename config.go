package fitAuth

import (
	"errors"
	"time"

	"github.com/fitgoal/fitAuth/jwt"
)

// Config is the complete Engine configuration. Start from [DefaultConfig]
// and override fields; the Builder clones it, so later changes to the
// caller's copy have no effect.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	Login         LoginConfig
	Account       AccountConfig
	PasswordReset PasswordResetConfig
	Denylist      DenylistConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	// Secret is the HS256 signing key, at least 32 bytes. It can also be
	// supplied with Builder.WithSecret.
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
	Leeway   time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// PoolSize bounds concurrent hash computations. Zero uses GOMAXPROCS.
	PoolSize int
	// UpgradeOnLogin rehashes stored passwords whose parameters are weaker
	// than the current ones after a successful login.
	UpgradeOnLogin bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

type LoginConfig struct {
	// UniformFailure reports an unknown email as ErrInvalidCredential
	// instead of ErrAccountNotFound.
	UniformFailure bool

	// Failed attempts allowed per email and per client IP within
	// AttemptWindow. Zero disables the corresponding limit.
	MaxAttemptsPerEmail int
	MaxAttemptsPerIP    int
	AttemptWindow       time.Duration
	RedisPrefix         string
}

type AccountConfig struct {
	IssueTokenOnRegister bool
}

type PasswordResetConfig struct {
	TokenTTL time.Duration
	// MaxRequests per email within RequestWindow. Requests over the limit
	// are silently ignored.
	MaxRequests   int
	RequestWindow time.Duration
	RedisPrefix   string
}

type DenylistConfig struct {
	RedisPrefix string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:    24 * time.Hour,
			Leeway: 0,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           1,
			Parallelism:    4,
			SaltLength:     16,
			KeyLength:      32,
			PoolSize:       0,
			UpgradeOnLogin: true,
		},
		Login: LoginConfig{
			UniformFailure:      false,
			MaxAttemptsPerEmail: 5,
			MaxAttemptsPerIP:    50,
			AttemptWindow:       15 * time.Minute,
			RedisPrefix:         "far",
		},
		Account: AccountConfig{
			IssueTokenOnRegister: false,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:      15 * time.Minute,
			MaxRequests:   3,
			RequestWindow: 15 * time.Minute,
			RedisPrefix:   "fapr",
		},
		Denylist: DenylistConfig{
			RedisPrefix: "fad",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the default configuration. JWT.Secret is empty and
// must be set before building an Engine.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.PoolSize < 0 {
		return errors.New("Password PoolSize must be >= 0")
	}

	// Login
	if c.Login.MaxAttemptsPerEmail < 0 || c.Login.MaxAttemptsPerIP < 0 {
		return errors.New("Login attempt limits must be >= 0")
	}
	if (c.Login.MaxAttemptsPerEmail > 0 || c.Login.MaxAttemptsPerIP > 0) && c.Login.AttemptWindow <= 0 {
		return errors.New("Login AttemptWindow must be > 0 when attempt limits are set")
	}

	// Password Reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.MaxRequests < 0 {
		return errors.New("PasswordReset MaxRequests must be >= 0")
	}
	if c.PasswordReset.MaxRequests > 0 && c.PasswordReset.RequestWindow <= 0 {
		return errors.New("PasswordReset RequestWindow must be > 0 when MaxRequests is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
