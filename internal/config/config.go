package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"MNS_ENV"`
	HTTPAddr string `mapstructure:"MNS_HTTP_ADDR"`

	Store  StoreConfig  `mapstructure:",squash"`
	Record RecordConfig `mapstructure:",squash"`
	Limit  LimitConfig  `mapstructure:",squash"`
}

// StoreConfig selects and parameterizes the key-value backend.
type StoreConfig struct {
	// Backend is "memory" (the in-process engine) or "redis" (a real
	// server, used to cross-check the engine's semantics).
	Backend   string `mapstructure:"MNS_STORE_BACKEND"`
	RedisAddr string `mapstructure:"MNS_REDIS_ADDR"`
	RedisDB   int    `mapstructure:"MNS_REDIS_DB"`
}

// RecordConfig carries the default lifetimes of the service records.
type RecordConfig struct {
	OAuthStateTTL     time.Duration `mapstructure:"MNS_OAUTH_STATE_TTL"`
	TwoFactorTTL      time.Duration `mapstructure:"MNS_2FA_CHALLENGE_TTL"`
	ResetTokenTTL     time.Duration `mapstructure:"MNS_RESET_TOKEN_TTL"`
	SessionTTL        time.Duration `mapstructure:"MNS_SESSION_TTL"`
	CacheTTL          time.Duration `mapstructure:"MNS_CACHE_TTL"`
	TwoFactorMaxTries int           `mapstructure:"MNS_2FA_MAX_ATTEMPTS"`
}

// LimitConfig parameterizes the fixed-window rate limiter.
type LimitConfig struct {
	Window      time.Duration `mapstructure:"MNS_RATE_LIMIT_WINDOW"`
	MaxAttempts int64         `mapstructure:"MNS_RATE_LIMIT_MAX"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // ignore errors; env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("MNS_ENV", "dev")
	viper.SetDefault("MNS_HTTP_ADDR", ":9090")
	viper.SetDefault("MNS_STORE_BACKEND", "memory")
	viper.SetDefault("MNS_REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("MNS_REDIS_DB", 0)
	viper.SetDefault("MNS_OAUTH_STATE_TTL", "600s")
	viper.SetDefault("MNS_2FA_CHALLENGE_TTL", "300s")
	viper.SetDefault("MNS_2FA_MAX_ATTEMPTS", 3)
	viper.SetDefault("MNS_RESET_TOKEN_TTL", "900s")
	viper.SetDefault("MNS_SESSION_TTL", "86400s")
	viper.SetDefault("MNS_CACHE_TTL", "300s")
	viper.SetDefault("MNS_RATE_LIMIT_WINDOW", "60s")
	viper.SetDefault("MNS_RATE_LIMIT_MAX", 5)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid MNS_STORE_BACKEND %q (must be memory or redis)", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return fmt.Errorf("MNS_REDIS_ADDR is required for the redis backend")
	}
	if c.Record.OAuthStateTTL <= 0 || c.Record.TwoFactorTTL <= 0 ||
		c.Record.ResetTokenTTL <= 0 || c.Record.SessionTTL <= 0 || c.Record.CacheTTL <= 0 {
		return fmt.Errorf("record TTLs must be positive")
	}
	if c.Record.TwoFactorMaxTries <= 0 {
		return fmt.Errorf("MNS_2FA_MAX_ATTEMPTS must be positive")
	}
	if c.Limit.Window <= 0 {
		return fmt.Errorf("MNS_RATE_LIMIT_WINDOW must be positive")
	}
	if c.Limit.MaxAttempts <= 0 {
		return fmt.Errorf("MNS_RATE_LIMIT_MAX must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
