package goAccount

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store/memory"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "redis token backend",
			mutate:    func(c *Config) { c.Tokens.Backend = TokenBackendRedis },
			wantValid: true,
		},
		{
			name:      "unknown token backend",
			mutate:    func(c *Config) { c.Tokens.Backend = "s3" },
			wantValid: false,
		},
		{
			name: "redis token prefix collides with sessions",
			mutate: func(c *Config) {
				c.Tokens.Backend = TokenBackendRedis
				c.Tokens.RedisPrefix = c.Session.RedisPrefix
			},
			wantValid: false,
		},
		{
			name:      "zero reset ttl",
			mutate:    func(c *Config) { c.Tokens.ResetTTL = 0 },
			wantValid: false,
		},
		{
			name:      "policy max below min",
			mutate:    func(c *Config) { c.PasswordPolicy.MaxBytes = 4 },
			wantValid: false,
		},
		{
			name:      "zero session ttl",
			mutate:    func(c *Config) { c.Session.TTL = 0 },
			wantValid: false,
		},
		{
			name:      "no login attempts",
			mutate:    func(c *Config) { c.Security.MaxLoginAttempts = 0 },
			wantValid: false,
		},
		{
			name: "inverted enumeration delay",
			mutate: func(c *Config) {
				c.PasswordReset.EnumerationDelayMin = 50 * time.Millisecond
				c.PasswordReset.EnumerationDelayMax = 10 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name:      "relative base url",
			mutate:    func(c *Config) { c.Notification.BaseURL = "/app" },
			wantValid: false,
		},
		{
			name:      "reset path without slash",
			mutate:    func(c *Config) { c.Notification.ResetPath = "change_password" },
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	if _, err := New().Build(); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected missing redis error, got %v", err)
	}

	_, rdb := newTestRedis(t)
	if _, err := New().WithRedis(rdb).Build(); err == nil || !strings.Contains(err.Error(), "identity store") {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().WithConfig(testConfig()).WithRedis(rdb).WithIdentityStore(memory.New())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatalf("expected second build to fail")
	}
}

func TestBuilderGeneratesFallbackHash(t *testing.T) {
	h := newHarness(t)

	if !strings.HasPrefix(h.engine.config.Credentials.FallbackHash, "$argon2id$") {
		t.Fatalf("expected generated argon2id fallback hash, got %q", h.engine.config.Credentials.FallbackHash)
	}
}

func TestBuilderRejectsUnusableFallbackHash(t *testing.T) {
	_, rdb := newTestRedis(t)

	weak, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	weakHash, err := weak.Hash("filler")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name string
		hash string
	}{
		{"malformed", "not-a-phc-string"},
		{"weaker parameters", weakHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Credentials.FallbackHash = tt.hash

			engine, err := New().
				WithConfig(cfg).
				WithRedis(rdb).
				WithIdentityStore(memory.New()).
				Build()
			if err == nil {
				engine.Close()
				t.Fatalf("expected Build to reject fallback hash %q", tt.hash)
			}
		})
	}
}

func TestBuilderAcceptsMatchingFallbackHash(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	cfg.Credentials.FallbackHash, err = hasher.Hash("filler")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithIdentityStore(memory.New()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	engine.Close()
}

func TestRedisTokenBackendRunsResetFlow(t *testing.T) {
	h := newHarness(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Tokens.Backend = TokenBackendRedis
		b.WithConfig(cfg)
	})
	ctx := context.Background()
	h.createActive(t, "slot", "slot@house.net", testPassword)

	if err := h.engine.RequestPasswordReset(ctx, "slot@house.net"); err != nil {
		t.Fatalf("request: %v", err)
	}
	tok := h.lastToken(t, "slot@house.net")
	if err := h.engine.ChangePassword(ctx, ChangePasswordRequest{ResetToken: tok, Password: "House!808", PasswordAgain: "House!808"}); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := h.engine.ChangePassword(ctx, ChangePasswordRequest{ResetToken: tok, Password: "House!808", PasswordAgain: "House!808"}); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected consumed slot, got %v", err)
	}
}
