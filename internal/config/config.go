// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Book listing cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Category tree
	TreeLockTimeout   time.Duration // how long a mutation waits for the tree lock
	TreeAuditInterval time.Duration // 0 disables the integrity audit

	// Writes per client per minute on mutating routes, 0 disables the limit
	WriteRateLimit int
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if a value cannot be
// parsed or if critical values are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "bookcatalog"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "bookcatalog"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
	}

	var err error
	if cfg.CacheEnabled, err = boolOrDefault("CACHE_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationOrDefault("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TreeLockTimeout, err = durationOrDefault("TREE_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TreeAuditInterval, err = durationOrDefault("TREE_AUDIT_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WriteRateLimit, err = intOrDefault("WRITE_RATE_LIMIT", 120); err != nil {
		return nil, err
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}
	if cfg.TreeLockTimeout <= 0 {
		return nil, fmt.Errorf("TREE_LOCK_TIMEOUT must be positive, got %s", cfg.TreeLockTimeout)
	}
	if cfg.TreeAuditInterval < 0 {
		return nil, fmt.Errorf("TREE_AUDIT_INTERVAL must not be negative, got %s", cfg.TreeAuditInterval)
	}
	if cfg.WriteRateLimit < 0 {
		return nil, fmt.Errorf("WRITE_RATE_LIMIT must not be negative, got %d", cfg.WriteRateLimit)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationOrDefault parses a Go duration ("5s", "10m"). A bare "0" is accepted.
func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func boolOrDefault(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, v, err)
	}
	return b, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
