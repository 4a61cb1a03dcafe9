package sessionauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/rate"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/storage/redisstore"
)

// Builder assembles an Engine. Configure it during initialization and call
// Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     UserStore
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables per-IP rate limiting and, when no store was given, the
// Redis credential store and audit sink.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink overrides the audit destination. Without it the store is
// used when it can accept entries.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now; tests use it to step past expiries.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
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

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("user store or redis client required")
		}
		store = redisstore.New(b.redis, redisstore.Options{
			Prefix:           cfg.Store.RedisPrefix,
			MaxUpdateRetries: cfg.Store.MaxUpdateRetries,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- TOKENS --------
	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewHasher(cfg.passwordParams())
	if err != nil {
		return nil, err
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		if s, ok := store.(audit.Sink); ok {
			sink = s
		}
	}
	var reader audit.Reader
	switch s := sink.(type) {
	case audit.MultiSink:
		reader, _ = s.Reader()
	case audit.Reader:
		reader = s
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		store:       store,
		redis:       b.redis,
		hasher:      hasher,
		policy:      cfg.passwordPolicy(),
		codec:       codec,
		lockout:     limiters.NewLockout(limiters.LockoutConfig(cfg.Lockout)),
		auditReader: reader,
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger,
		clock:       clock,
		startedAt:   clock(),
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, sink, logger)

	if b.redis != nil && cfg.RateLimit.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix: cfg.RateLimit.Prefix,
			Rules: map[string]rate.Rule{
				rateScopeLogin:    {Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
				rateScopeRegister: {Limit: cfg.RateLimit.RegisterLimit, Window: cfg.RateLimit.RegisterWindow},
			},
		})
	}

	scope := flows.StoreScope(engine.storeScope)
	engine.flows = flows.Deps{
		Login: flows.LoginDeps{
			Store:       store,
			Passwords:   hasher,
			Tokens:      codec,
			Lockout:     engine.lockout,
			Scope:       scope,
			MaxSessions: cfg.Session.MaxSessionsPerUser,
			UpgradeHash: cfg.Password.UpgradeOnLogin,
			Warn:        logger.Warn,
		},
		Refresh: flows.RefreshDeps{
			Store:  store,
			Tokens: codec,
			Scope:  scope,
		},
		Sessions: flows.SessionDeps{
			Store:  store,
			Tokens: codec,
			Scope:  scope,
		},
		Sweep: flows.SweepDeps{
			Store: store,
			Scope: scope,
			Now:   engine.now,
		},
	}

	b.built = true

	return engine, nil
}

const (
	rateScopeLogin    = "login"
	rateScopeRegister = "register"
)
