// Package config loads the server's settings. Precedence, lowest first:
// built-in defaults, the YAML file named by CONFIG_FILE, a .env file, and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/sessionauth"
)

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"

	defaultRedisURL = "redis://localhost:6379/0"
)

type Config struct {
	AppEnv       string
	LogLevel     string
	ClientOrigin string
	TrustProxy   bool

	HTTP   HTTPConfig
	Tokens TokenConfig
	Store  StoreConfig

	SessionSweepInterval time.Duration
	AuditBufferSize      int
	AuditLogFile         string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
}

// fileConfig mirrors the YAML layout. Durations stay strings so the file
// accepts the same forms as the environment.
type fileConfig struct {
	AppEnv       string `yaml:"app_env"`
	LogLevel     string `yaml:"log_level"`
	ClientOrigin string `yaml:"client_origin"`
	TrustProxy   *bool  `yaml:"trust_proxy"`

	HTTP struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Tokens struct {
		AccessSecret  string `yaml:"access_secret"`
		RefreshSecret string `yaml:"refresh_secret"`
		AccessExpiry  string `yaml:"access_expiry"`
		RefreshExpiry string `yaml:"refresh_expiry"`
	} `yaml:"tokens"`

	Store struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"store"`

	Session struct {
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"session"`

	Audit struct {
		BufferSize *int   `yaml:"buffer_size"`
		LogFile    string `yaml:"log_file"`
	} `yaml:"audit"`
}

func defaults() Config {
	return Config{
		AppEnv:       "development",
		LogLevel:     "info",
		ClientOrigin: "http://localhost:5173",
		HTTP: HTTPConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Tokens: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Driver: DriverRedis,
		},
		SessionSweepInterval: time.Hour,
		AuditBufferSize:      1024,
	}
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	env, err := newEnv(os.Getenv("ENV_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()
	if path := env.get("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	// The postgres driver only talks to Redis, for rate limiting, when
	// REDIS_URL is given explicitly.
	if cfg.Store.Driver == DriverRedis && cfg.Store.RedisURL == "" {
		cfg.Store.RedisURL = defaultRedisURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.AppEnv, f.AppEnv)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.ClientOrigin, f.ClientOrigin)
	if f.TrustProxy != nil {
		c.TrustProxy = *f.TrustProxy
	}
	setString(&c.HTTP.Addr, f.HTTP.Addr)
	setString(&c.Tokens.AccessSecret, f.Tokens.AccessSecret)
	setString(&c.Tokens.RefreshSecret, f.Tokens.RefreshSecret)
	setString(&c.Store.Driver, f.Store.Driver)
	setString(&c.Store.DatabaseURL, f.Store.DatabaseURL)
	setString(&c.Store.RedisURL, f.Store.RedisURL)
	setString(&c.AuditLogFile, f.Audit.LogFile)
	if f.Audit.BufferSize != nil {
		c.AuditBufferSize = *f.Audit.BufferSize
	}

	return errors.Join(
		setDuration(&c.HTTP.ReadTimeout, "http.read_timeout", f.HTTP.ReadTimeout),
		setDuration(&c.HTTP.WriteTimeout, "http.write_timeout", f.HTTP.WriteTimeout),
		setDuration(&c.HTTP.ShutdownTimeout, "http.shutdown_timeout", f.HTTP.ShutdownTimeout),
		setDuration(&c.Tokens.AccessTTL, "tokens.access_expiry", f.Tokens.AccessExpiry),
		setDuration(&c.Tokens.RefreshTTL, "tokens.refresh_expiry", f.Tokens.RefreshExpiry),
		setDuration(&c.SessionSweepInterval, "session.sweep_interval", f.Session.SweepInterval),
	)
}

func (c *Config) applyEnv(env envSource) error {
	c.AppEnv = env.get("APP_ENV", c.AppEnv)
	c.LogLevel = env.get("LOG_LEVEL", c.LogLevel)
	c.ClientOrigin = env.get("CLIENT_ORIGIN", c.ClientOrigin)
	c.HTTP.Addr = env.get("HTTP_ADDR", c.HTTP.Addr)
	c.Tokens.AccessSecret = env.get("ACCESS_TOKEN_SECRET", c.Tokens.AccessSecret)
	c.Tokens.RefreshSecret = env.get("REFRESH_TOKEN_SECRET", c.Tokens.RefreshSecret)
	c.Store.Driver = env.get("STORE_DRIVER", c.Store.Driver)
	c.Store.DatabaseURL = env.get("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.RedisURL = env.get("REDIS_URL", c.Store.RedisURL)
	c.AuditLogFile = env.get("AUDIT_LOG_FILE", c.AuditLogFile)

	var errs []error
	if v := env.get("TRUST_PROXY", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRUST_PROXY: %w", err))
		}
		c.TrustProxy = b
	}
	if v := env.get("AUDIT_BUFFER_SIZE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("AUDIT_BUFFER_SIZE: %w", err))
		}
		c.AuditBufferSize = n
	}
	errs = append(errs,
		setDuration(&c.Tokens.AccessTTL, "ACCESS_TOKEN_EXPIRY", env.get("ACCESS_TOKEN_EXPIRY", "")),
		setDuration(&c.Tokens.RefreshTTL, "REFRESH_TOKEN_EXPIRY", env.get("REFRESH_TOKEN_EXPIRY", "")),
		setDuration(&c.SessionSweepInterval, "SESSION_SWEEP_INTERVAL", env.get("SESSION_SWEEP_INTERVAL", "")),
		setDuration(&c.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", env.get("HTTP_SHUTDOWN_TIMEOUT", "")),
	)
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.Tokens.AccessSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET must be set"))
	}
	if c.Tokens.RefreshSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET must be set"))
	}
	if c.Tokens.AccessSecret != "" && c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token expiries must be > 0"))
	}
	switch c.Store.Driver {
	case DriverRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL must be set for the redis driver"))
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of redis, postgres", c.Store.Driver))
	}
	if c.AuditBufferSize < 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must be >= 0"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Production reports whether APP_ENV is production. Cookies are marked
// Secure only then.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Engine maps the settings onto an engine configuration.
func (c Config) Engine() sessionauth.Config {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.Tokens.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.Tokens.RefreshSecret)
	cfg.JWT.AccessTTL = c.Tokens.AccessTTL
	cfg.JWT.RefreshTTL = c.Tokens.RefreshTTL
	cfg.Session.SweepInterval = c.SessionSweepInterval
	cfg.Audit.BufferSize = c.AuditBufferSize
	return cfg
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// ParseDuration accepts Go durations, plain minutes ("15") and whole days
// ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

// envSource resolves a key from the process environment, then the .env
// file. The .env values never touch os.Environ.
type envSource struct {
	dotenv map[string]string
}

func newEnv(path string) (envSource, error) {
	if path == "" {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return envSource{}, nil
		}
		return envSource{}, fmt.Errorf("read %s: %w", path, err)
	}
	return envSource{dotenv: values}, nil
}

func (e envSource) get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	if val := e.dotenv[key]; val != "" {
		return val
	}
	return fallback
}
