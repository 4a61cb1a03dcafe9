package sessionauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "missing secret invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = nil
			},
			wantValid: false,
		},
		{
			name: "identical secrets invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = append([]byte(nil), c.JWT.AccessSecret...)
			},
			wantValid: false,
		},
		{
			name: "access ttl longer than refresh invalid",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 8 * 24 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "unlimited sessions valid",
			mutate: func(c *Config) {
				c.Session.MaxSessionsPerUser = 0
			},
			wantValid: true,
		},
		{
			name: "negative session cap invalid",
			mutate: func(c *Config) {
				c.Session.MaxSessionsPerUser = -1
			},
			wantValid: false,
		},
		{
			name: "password max below min invalid",
			mutate: func(c *Config) {
				c.Password.MinLength = 10
				c.Password.MaxLength = 8
			},
			wantValid: false,
		},
		{
			name: "lockout threshold zero invalid",
			mutate: func(c *Config) {
				c.Lockout.Threshold = 0
			},
			wantValid: false,
		},
		{
			name: "disabled lockout ignores threshold",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.Threshold = 0
			},
			wantValid: true,
		},
		{
			name: "rate limit without window invalid",
			mutate: func(c *Config) {
				c.RateLimit.LoginWindow = 0
			},
			wantValid: false,
		},
		{
			name: "negative audit buffer invalid",
			mutate: func(c *Config) {
				c.Audit.BufferSize = -1
			},
			wantValid: false,
		},
		{
			name: "zero store timeout invalid",
			mutate: func(c *Config) {
				c.Store.OperationTimeout = 0
			},
			wantValid: false,
		},
		{
			name: "zero retries invalid",
			mutate: func(c *Config) {
				c.Store.MaxUpdateRetries = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected default config without secrets to fail")
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default TTLs %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Lockout.Threshold != 5 || cfg.Lockout.Duration != 30*time.Minute {
		t.Fatalf("unexpected lockout defaults %+v", cfg.Lockout)
	}
}

func TestWithConfigClonesSecrets(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.AccessSecret[0] = 'X'
	if b.config.JWT.AccessSecret[0] == 'X' {
		t.Fatalf("builder config aliases caller secret")
	}
}
