package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"ENV_FILE", "CONFIG_FILE", "APP_ENV", "LOG_LEVEL", "CLIENT_ORIGIN", "TRUST_PROXY",
	"HTTP_ADDR", "HTTP_SHUTDOWN_TIMEOUT",
	"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "ACCESS_TOKEN_EXPIRY", "REFRESH_TOKEN_EXPIRY",
	"STORE_DRIVER", "DATABASE_URL", "REDIS_URL",
	"SESSION_SWEEP_INTERVAL", "AUDIT_BUFFER_SIZE", "AUDIT_LOG_FILE",
}

// clearEnv blanks every key Load reads and points ENV_FILE at a missing
// file so a stray .env cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "env-access-secret-0123456789abcdef")
	t.Setenv("REFRESH_TOKEN_SECRET", "env-refresh-secret-0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	setSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Fatalf("expected default addr :5000, got %q", cfg.HTTP.Addr)
	}
	if cfg.Tokens.AccessTTL != 15*time.Minute || cfg.Tokens.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token TTLs %v / %v", cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL)
	}
	if cfg.Store.Driver != DriverRedis || cfg.Store.RedisURL != defaultRedisURL {
		t.Fatalf("expected local redis driver, got %+v", cfg.Store)
	}
	if cfg.Production() {
		t.Fatalf("expected development by default")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error without secrets")
	}
	for _, want := range []string{"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	setSecrets(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "14d")
	t.Setenv("SESSION_SWEEP_INTERVAL", "90s")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth?sslmode=disable")
	t.Setenv("AUDIT_BUFFER_SIZE", "0")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.Production() || !cfg.TrustProxy {
		t.Fatalf("expected production with trusted proxy")
	}
	if cfg.Tokens.AccessTTL != 30*time.Minute {
		t.Fatalf("expected plain minutes, got %v", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("expected 14 days, got %v", cfg.Tokens.RefreshTTL)
	}
	if cfg.SessionSweepInterval != 90*time.Second {
		t.Fatalf("unexpected sweep interval %v", cfg.SessionSweepInterval)
	}
	if cfg.AuditBufferSize != 0 {
		t.Fatalf("expected sync audit, got %d", cfg.AuditBufferSize)
	}
	if cfg.Store.RedisURL != "" {
		t.Fatalf("postgres driver should not default a redis url, got %q", cfg.Store.RedisURL)
	}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("unexpected level %v", cfg.SlogLevel())
	}

	engine := cfg.Engine()
	if engine.JWT.AccessTTL != 30*time.Minute || string(engine.JWT.RefreshSecret) != "env-refresh-secret-0123456789abcdef" {
		t.Fatalf("engine config not mapped: %+v", engine.JWT)
	}
	if err := engine.Validate(); err != nil {
		t.Fatalf("mapped engine config invalid: %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionauth.yaml")
	yaml := `
app_env: staging
http:
  addr: ":7000"
  shutdown_timeout: 5s
tokens:
  access_secret: file-access-secret-0123456789abcdef
  refresh_secret: file-refresh-secret-0123456789abcdef
  access_expiry: 10m
store:
  driver: redis
  redis_url: redis://cache:6379/2
audit:
  buffer_size: 16
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("env should override file, got %q", cfg.HTTP.Addr)
	}
	if cfg.AppEnv != "staging" || cfg.Store.RedisURL != "redis://cache:6379/2" || cfg.AuditBufferSize != 16 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Tokens.AccessTTL != 10*time.Minute || cfg.HTTP.ShutdownTimeout != 5*time.Second {
		t.Fatalf("file durations not applied: %v %v", cfg.Tokens.AccessTTL, cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Tokens.AccessSecret != "file-access-secret-0123456789abcdef" {
		t.Fatalf("file secret not applied")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "ACCESS_TOKEN_SECRET=dotenv-access-secret-0123456789abcdef\n" +
		"REFRESH_TOKEN_SECRET=dotenv-refresh-secret-0123456789abcdef\n" +
		"HTTP_ADDR=:6000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("HTTP_ADDR", ":6500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Tokens.AccessSecret != "dotenv-access-secret-0123456789abcdef" {
		t.Fatalf(".env secret not applied")
	}
	if cfg.HTTP.Addr != ":6500" {
		t.Fatalf("process env should win over .env, got %q", cfg.HTTP.Addr)
	}
	if _, ok := os.LookupEnv("REFRESH_TOKEN_SECRET"); ok && os.Getenv("REFRESH_TOKEN_SECRET") != "" {
		t.Fatalf(".env leaked into the process environment")
	}
}

func TestValidateRejects(t *testing.T) {
	base := defaults()
	base.Tokens.AccessSecret = "a-secret-0123456789abcdef0123456789"
	base.Tokens.RefreshSecret = "b-secret-0123456789abcdef0123456789"
	base.Store.RedisURL = defaultRedisURL

	cases := map[string]func(*Config){
		"same secrets":   func(c *Config) { c.Tokens.RefreshSecret = c.Tokens.AccessSecret },
		"unknown driver": func(c *Config) { c.Store.Driver = "mongo" },
		"postgres url":   func(c *Config) { c.Store.Driver = DriverPostgres },
		"redis url":      func(c *Config) { c.Store.RedisURL = "" },
		"zero ttl":       func(c *Config) { c.Tokens.AccessTTL = 0 },
		"negative audit": func(c *Config) { c.AuditBufferSize = -1 },
		"bad level":      func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15":    15 * time.Minute,
		"7d":    7 * 24 * time.Hour,
		"1h30m": 90 * time.Minute,
		" 45s ": 45 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "xd", "soon"} {
		if _, err := ParseDuration(in); err == nil {
			t.Fatalf("ParseDuration(%q) expected error", in)
		}
	}
}
