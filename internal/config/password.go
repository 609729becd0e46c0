package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// PasswordConfig holds the admin credentials and hashing parameters for the
// waitlist export endpoint.
type PasswordConfig struct {
	AdminUser  string `env:"ADMIN_USER" envDefault:"admin"`
	AdminHash  string `env:"ADMIN_PASSWORD_HASH"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`
	Pepper     string `env:"PASSWORD_PEPPER"` // optional global secret for additional security
}

// NewPasswordConfig creates a new password configuration from environment variables.
// It reads ADMIN_USER, ADMIN_PASSWORD_HASH, BCRYPT_COST (default: 12) and optionally PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	var config PasswordConfig
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("invalid password config: %w", err)
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return &config, nil
}

// normalize validates the configuration.
func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// AdminEnabled reports whether an admin password hash is configured.
func (c *PasswordConfig) AdminEnabled() bool {
	return c.AdminHash != ""
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(c.pepper(pw)), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(c.pepper(pw)))
	return err == nil
}

// VerifyAdmin checks basic-auth credentials against the configured admin account.
func (c *PasswordConfig) VerifyAdmin(user, pw string) bool {
	if !c.AdminEnabled() || user != c.AdminUser {
		return false
	}
	return c.VerifyPassword(pw, c.AdminHash)
}

func (c *PasswordConfig) pepper(pw string) string {
	if c.Pepper != "" {
		return pw + c.Pepper
	}
	return pw
}
