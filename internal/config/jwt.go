package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// JWTConfig holds configuration for funnel session token generation and validation.
type JWTConfig struct {
	Secret string        `env:"SESSION_TOKEN_SECRET,required"`
	TTL    time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads SESSION_TOKEN_SECRET (required) and SESSION_TOKEN_TTL (default: 24h).
func NewJWTConfig() (*JWTConfig, error) {
	var config JWTConfig
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("invalid session token config: %w", err)
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return &config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("SESSION_TOKEN_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("SESSION_TOKEN_SECRET must be at least 16 bytes, got: %d", len(c.Secret))
	}
	if c.TTL < time.Minute {
		return fmt.Errorf("SESSION_TOKEN_TTL must be at least 1 minute, got: %s", c.TTL)
	}
	return nil
}
