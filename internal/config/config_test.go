package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Backend != "memory" {
		t.Errorf("default backend: got %q, want memory", cfg.Store.Backend)
	}
	if cfg.Record.OAuthStateTTL != 600*time.Second {
		t.Errorf("oauth state TTL: got %v", cfg.Record.OAuthStateTTL)
	}
	if cfg.Record.SessionTTL != 86400*time.Second {
		t.Errorf("session TTL: got %v", cfg.Record.SessionTTL)
	}
	if cfg.Limit.Window != 60*time.Second || cfg.Limit.MaxAttempts != 5 {
		t.Errorf("rate limit defaults: got %v/%d", cfg.Limit.Window, cfg.Limit.MaxAttempts)
	}
	if !cfg.IsDev() {
		t.Errorf("default env should be dev, got %q", cfg.Env)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MNS_RATE_LIMIT_MAX", "10")
	t.Setenv("MNS_2FA_CHALLENGE_TTL", "120s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Limit.MaxAttempts != 10 {
		t.Errorf("MNS_RATE_LIMIT_MAX override ignored: got %d", cfg.Limit.MaxAttempts)
	}
	if cfg.Record.TwoFactorTTL != 120*time.Second {
		t.Errorf("MNS_2FA_CHALLENGE_TTL override ignored: got %v", cfg.Record.TwoFactorTTL)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MNS_STORE_BACKEND", "cassandra")

	if _, err := Load(); err == nil {
		t.Fatal("unknown backend must be rejected")
	}
}

func TestLoadRejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("MNS_RATE_LIMIT_WINDOW", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("zero rate-limit window must be rejected")
	}
}
