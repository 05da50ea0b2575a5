package fitAuth

import (
	"errors"

	"github.com/fitgoal/fitAuth/denylist"
	internalaudit "github.com/fitgoal/fitAuth/internal/audit"
	"github.com/fitgoal/fitAuth/internal/logging"
	"github.com/fitgoal/fitAuth/internal/rate"
	"github.com/fitgoal/fitAuth/jwt"
	"github.com/fitgoal/fitAuth/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	notifier  ResetNotifier
	auditSink AuditSink
	logger    logging.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the HS256 signing secret, overriding Config.JWT.Secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(secret)
	return b
}

// WithRedis sets the client backing the denylist, rate limits and reset
// tokens. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithNotifier sets the reset token delivery channel. Without one, reset
// requests still succeed but no token is created.
func (b *Builder) WithNotifier(n ResetNotifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit sink. Config.Audit.Enabled must also be set
// for events to be dispatched.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. A Builder
// can be built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}

	// -------- PASSWORD POOL --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	pool, err := password.NewPool(hasher, cfg.Password.PoolSize)
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret:   cloneBytes(cfg.JWT.Secret),
		TTL:      cfg.JWT.TTL,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		accounts:    b.accounts,
		notifier:    b.notifier,
		passwords:   pool,
		jwtManager:  jm,
		denylist:    denylist.NewStore(b.redis, cfg.Denylist.RedisPrefix, cfg.JWT.Leeway),
		rateLimiter: rate.New(b.redis, cfg.Login.RedisPrefix),
		resetStore:  newPasswordResetStore(b.redis, cfg.PasswordReset.RedisPrefix),
		validator:   newInputValidator(),
		metrics:     NewMetrics(cfg.Metrics),
		log:         logger,
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewLoggerSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}
