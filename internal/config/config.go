package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Datastore
	DatabaseURL string

	// Cache / queue (same Redis instance backs both by default)
	CacheURL string

	// Auth
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Login rate limiting
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration

	// Per-agent write-path rate limiting (token bucket)
	AgentRateLimitPerMinute int
	AgentRateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		CacheURL:                getEnv("CACHE_URL", "redis://localhost:6379/0"),
		AccessTokenSecret:       getEnv("ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret:      getEnv("REFRESH_TOKEN_SECRET", ""),
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTL:         7 * 24 * time.Hour,
		Port:                    getEnv("PORT", "8080"),
		CORSOrigins:             strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                     getEnv("ENV", "development"),
		LoginRateLimitRequests:  5,
		LoginRateLimitWindow:    5 * time.Minute,
		AgentRateLimitPerMinute: 60,
		AgentRateLimitBurst:     10,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.CacheURL == "" {
		return fmt.Errorf("CACHE_URL is required")
	}
	if c.IsProduction() {
		if len(c.AccessTokenSecret) < 32 {
			return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least 32 bytes in production")
		}
		if len(c.RefreshTokenSecret) < 32 {
			return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least 32 bytes in production")
		}
	}
	if c.AccessTokenSecret == "" {
		c.AccessTokenSecret = "development-only-access-secret-please-override"
	}
	if c.RefreshTokenSecret == "" {
		c.RefreshTokenSecret = "development-only-refresh-secret-please-override"
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
