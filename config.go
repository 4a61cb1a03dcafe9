package sessionauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sessionauth/password"
)

// Config is the full engine configuration. Start from DefaultConfig and
// override what the deployment needs; Build validates the result.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Store     StoreConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the token secrets and lifetimes. Access and refresh
// secrets are independent and must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig bounds the per-user session ledger.
type SessionConfig struct {
	// MaxSessionsPerUser evicts the least recently active sessions on login
	// once exceeded. Zero means unlimited.
	MaxSessionsPerUser int
	SweepInterval      time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id costs and the strength policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	MinLength    int
	MaxLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// LockoutConfig is the brute-force policy applied on failed logins.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// RateLimitConfig holds per-IP fixed windows. Limits only apply when the
// builder was given a Redis client.
type RateLimitConfig struct {
	Enabled        bool
	Prefix         string
	LoginLimit     int
	LoginWindow    time.Duration
	RegisterLimit  int
	RegisterWindow time.Duration
}

// AuditConfig controls the audit dispatcher. BufferSize 0 delivers
// synchronously.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig applies to every credential store call.
type StoreConfig struct {
	RedisPrefix      string
	OperationTimeout time.Duration
	MaxUpdateRetries int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults without secrets.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	policy := password.DefaultPolicy()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "sessionauth",
			Audience:   "sessionauth",
		},
		Session: SessionConfig{
			MaxSessionsPerUser: 10,
			SweepInterval:      time.Hour,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
			MinLength:      policy.MinLength,
			MaxLength:      policy.MaxLength,
			RequireUpper:   policy.RequireUpper,
			RequireLower:   policy.RequireLower,
			RequireDigit:   policy.RequireDigit,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			Prefix:         "sa:rl",
			LoginLimit:     10,
			LoginWindow:    15 * time.Minute,
			RegisterLimit:  3,
			RegisterWindow: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   true,
			WriteTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Store: StoreConfig{
			RedisPrefix:      "sa",
			OperationTimeout: 3 * time.Second,
			MaxUpdateRetries: 8,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
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

func (c *Config) passwordParams() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

func (c *Config) passwordPolicy() password.Policy {
	return password.Policy{
		MinLength:    c.Password.MinLength,
		MaxLength:    c.Password.MaxLength,
		RequireUpper: c.Password.RequireUpper,
		RequireLower: c.Password.RequireLower,
		RequireDigit: c.Password.RequireDigit,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT AccessSecret and RefreshSecret are required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}

	// Session
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session SweepInterval must be >= 0")
	}

	// Password
	if err := c.passwordParams().Validate(); err != nil {
		return fmt.Errorf("Password: %w", err)
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("Lockout Threshold must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.LoginLimit < 0 || c.RateLimit.RegisterLimit < 0 {
			return errors.New("RateLimit limits must be >= 0")
		}
		if c.RateLimit.LoginLimit > 0 && c.RateLimit.LoginWindow <= 0 {
			return errors.New("RateLimit LoginWindow must be > 0")
		}
		if c.RateLimit.RegisterLimit > 0 && c.RateLimit.RegisterWindow <= 0 {
			return errors.New("RateLimit RegisterWindow must be > 0")
		}
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	if c.Audit.WriteTimeout < 0 {
		return errors.New("Audit WriteTimeout must be >= 0")
	}

	// Store
	if c.Store.OperationTimeout <= 0 {
		return errors.New("Store OperationTimeout must be > 0")
	}
	if c.Store.MaxUpdateRetries <= 0 {
		return errors.New("Store MaxUpdateRetries must be > 0")
	}

	return nil
}
