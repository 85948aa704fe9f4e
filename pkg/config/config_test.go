package config

import (
	"testing"
	"time"
)

func TestLoadFromMap(t *testing.T) {
	input := map[string]any{
		"firewall": map[string]any{
			"max_content_length": 1200,
			"boundary_ratio":     0.5,
		},
		"rate_limit": map[string]any{
			"max_requests": 3,
			"window_ms":    1000,
		},
		"persistence": map[string]any{
			"driver": "memory",
		},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Firewall.MaxContentLength != 1200 {
		t.Fatalf("expected max content 1200, got %d", cfg.Firewall.MaxContentLength)
	}
	if cfg.Firewall.MaxURLLength != 2048 {
		t.Fatalf("expected default max url 2048, got %d", cfg.Firewall.MaxURLLength)
	}
	if cfg.RateLimit.MaxRequests != 3 || cfg.RateLimit.WindowMs != 1000 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.Persistence.Driver != "memory" {
		t.Fatalf("expected memory driver, got %s", cfg.Persistence.Driver)
	}
	if cfg.Persistence.DSN != "" {
		t.Fatalf("memory driver should not get a DSN, got %s", cfg.Persistence.DSN)
	}
}

func TestLoadFromStruct(t *testing.T) {
	input := Config{
		Vault:       VaultConfig{DerivationVersion: 1},
		Persistence: PersistenceConfig{Driver: "SQLite"},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Persistence.Driver != "sqlite" {
		t.Fatalf("expected normalized driver, got %s", cfg.Persistence.Driver)
	}
	if cfg.Persistence.DSN != Defaults().Persistence.DSN {
		t.Fatalf("expected default dsn, got %s", cfg.Persistence.DSN)
	}
	if cfg.RateLimit.WindowMs != time.Hour.Milliseconds() {
		t.Fatalf("expected default window, got %d", cfg.RateLimit.WindowMs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"ratio":  {Firewall: FirewallConfig{BoundaryRatio: 1.5}},
		"driver": {Persistence: PersistenceConfig{Driver: "postgres"}},
		"window": {RateLimit: RateLimitConfig{WindowMs: -1}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestFirewallOptions(t *testing.T) {
	cfg := Defaults()
	cfg.RateLimit.WindowMs = 1500
	opts := cfg.FirewallOptions()
	if opts.RateLimit.Window != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s window, got %s", opts.RateLimit.Window)
	}
	if opts.MaxContentLength != 50000 || opts.BoundaryRatio != 0.8 {
		t.Fatalf("unexpected options %+v", opts)
	}
}
