package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Storage
	DataDir string

	// Operation deadlines
	OpTimeout time.Duration

	// Tenant connection pool
	TenantIdleTimeout time.Duration

	// Session tokens (optional; disabled when JWTSecret is empty)
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           getEnv("HUBSTORE_DATA_DIR", defaultDataDir()),
		OpTimeout:         getEnvDuration("HUBSTORE_OP_TIMEOUT", 30*time.Second),
		TenantIdleTimeout: getEnvDuration("HUBSTORE_TENANT_IDLE_TIMEOUT", 5*time.Minute),

		JWTSecret:      getEnv("HUBSTORE_JWT_SECRET", ""),
		JWTIssuer:      getEnv("HUBSTORE_JWT_ISSUER", "hubstore"),
		AccessTokenTTL: getEnvDuration("HUBSTORE_ACCESS_TOKEN_TTL", 15*time.Minute),
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("HUBSTORE_DATA_DIR is required")
	}

	return cfg, nil
}

// RegistryPath returns the registry database file path.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "registry.db")
}

// HasSessions returns true if session token issuance is configured.
func (c *Config) HasSessions() bool {
	return c.JWTSecret != ""
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "hubstore")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
