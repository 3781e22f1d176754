// internal/config/config.go
// Centralized configuration management
// Loads from .env and CIRCLES_ prefixed environment variables with sensible defaults

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultJWTSecret = "your-super-secret-key-change-this-in-production"

// Config holds all application configuration
type Config struct {
	// Server
	Port            string        `envconfig:"PORT" default:"8080"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// Storage. An empty DatabaseURL selects the in-memory repository and an
	// empty RedisURL disables the presence mirror.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"circles"`

	// Security
	JWTSecret string `envconfig:"JWT_SECRET" default:"your-super-secret-key-change-this-in-production"`

	// Presence
	TypingTTL           time.Duration `envconfig:"TYPING_TTL" default:"5s"`
	TypingSweepInterval time.Duration `envconfig:"TYPING_SWEEP_INTERVAL" default:"5s"`

	// Facilitator
	FacilitatorMinDelay      time.Duration `envconfig:"FACILITATOR_MIN_DELAY" default:"5s"`
	FacilitatorMaxDelay      time.Duration `envconfig:"FACILITATOR_MAX_DELAY" default:"15s"`
	FacilitatorSummaryChance float64       `envconfig:"FACILITATOR_SUMMARY_PROBABILITY" default:"0.3"`
	PromptSweepInterval      time.Duration `envconfig:"PROMPT_SWEEP_INTERVAL" default:"1h"`
	RecentMessagesLookback   time.Duration `envconfig:"RECENT_MESSAGES_LOOKBACK" default:"24h"`
}

// Load reads .env if present, then the environment
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses CIRCLES_ prefixed environment variables
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("CIRCLES", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.JWTSecret == defaultJWTSecret && c.IsProduction() {
		return fmt.Errorf("JWT secret must be changed for production")
	}

	if c.IsProduction() && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required in production")
	}

	if c.TypingTTL <= 0 || c.TypingSweepInterval <= 0 {
		return fmt.Errorf("typing TTL and sweep interval must be positive")
	}

	if c.FacilitatorMinDelay < 0 || c.FacilitatorMaxDelay < c.FacilitatorMinDelay {
		return fmt.Errorf("invalid facilitator delay range %s-%s", c.FacilitatorMinDelay, c.FacilitatorMaxDelay)
	}
	if c.FacilitatorSummaryChance < 0 || c.FacilitatorSummaryChance > 1 {
		return fmt.Errorf("facilitator summary probability must be between 0 and 1")
	}

	if c.PromptSweepInterval <= 0 {
		return fmt.Errorf("prompt sweep interval must be positive")
	}
	if c.RecentMessagesLookback <= 0 {
		return fmt.Errorf("recent messages lookback must be positive")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
