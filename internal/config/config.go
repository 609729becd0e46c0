// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jonathan/prep-mirrors/internal/schemas"
)

// Config is the runtime configuration of the service. Values come from, in
// increasing precedence: Defaults, an optional JSON file, environment variables.
type Config struct {
	Port        int    `env:"PORT"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`
	CORSOrigin  string `env:"CORS_ORIGIN"`

	ResendAPIKey  string        `env:"RESEND_API_KEY"`
	NotifyFrom    string        `env:"NOTIFY_FROM"`
	NotifyTo      []string      `env:"NOTIFY_TO" envSeparator:","`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT"`

	SessionTTL      time.Duration `env:"SESSION_TTL"`
	RevealCharDelay time.Duration `env:"REVEAL_CHAR_DELAY"`
	RevealDwell     time.Duration `env:"REVEAL_DWELL"`
	LookupDebounce  time.Duration `env:"LOOKUP_DEBOUNCE"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            8080,
		CORSOrigin:      "*",
		NotifyFrom:      "Prep Mirrors <onboarding@resend.dev>",
		NotifyTimeout:   10 * time.Second,
		SessionTTL:      time.Hour,
		RevealCharDelay: 30 * time.Millisecond,
		RevealDwell:     time.Second,
		LookupDebounce:  300 * time.Millisecond,
	}
}

// Load builds the configuration from defaults, the optional JSON file at path,
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		fc, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		if err := fc.Validate(); err != nil {
			return nil, err
		}
		cfg = fc.MergeWithDefaults(cfg)
	}

	// Fields without a matching variable keep their current value.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges after all sources are merged.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return fmt.Errorf("config error: 'database_url' and 'sqlite_path' are mutually exclusive")
	}
	for name, d := range map[string]time.Duration{
		"session_ttl":       c.SessionTTL,
		"reveal_char_delay": c.RevealCharDelay,
		"reveal_dwell":      c.RevealDwell,
		"lookup_debounce":   c.LookupDebounce,
		"notify_timeout":    c.NotifyTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	if c.SessionTTL == 0 {
		return fmt.Errorf("config error: 'session_ttl' must be positive")
	}
	if c.ResendAPIKey != "" && len(c.NotifyTo) == 0 {
		return fmt.Errorf("config error: NOTIFY_TO is required when RESEND_API_KEY is set")
	}
	return nil
}

// Backend names the configured data store: "postgres", "sqlite" or "memory".
func (c *Config) Backend() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// FileConfig represents the JSON config file. All fields are optional.
type FileConfig struct {
	Port        int      `json:"port,omitempty"`
	DatabaseURL string   `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string   `json:"sqlite_path,omitempty"`  // Path to a SQLite database file
	NotifyFrom  string   `json:"notify_from,omitempty"`
	NotifyTo    []string `json:"notify_to,omitempty"`
	CORSOrigin  string   `json:"cors_origin,omitempty"`

	// Durations use time.ParseDuration syntax ("300ms", "1h").
	SessionTTL      string `json:"session_ttl,omitempty"`
	RevealCharDelay string `json:"reveal_char_delay,omitempty"`
	RevealDwell     string `json:"reveal_dwell,omitempty"`
	LookupDebounce  string `json:"lookup_debounce,omitempty"`
	NotifyTimeout   string `json:"notify_timeout,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// The file is checked against the embedded config schema before decoding.
func LoadConfig(path string) (*FileConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := schemas.ValidateConfig(data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &fc, nil
}

// Validate checks that the file values parse.
func (f *FileConfig) Validate() error {
	if f.Port < 0 {
		return fmt.Errorf("config error: 'port' must be non-negative")
	}
	if f.DatabaseURL != "" && f.SQLitePath != "" {
		return fmt.Errorf("config error: 'database_url' and 'sqlite_path' are mutually exclusive")
	}
	for name, raw := range f.durations() {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("config error: invalid '%s': %w", name, err)
		}
	}
	return nil
}

func (f *FileConfig) durations() map[string]string {
	return map[string]string{
		"session_ttl":       f.SessionTTL,
		"reveal_char_delay": f.RevealCharDelay,
		"reveal_dwell":      f.RevealDwell,
		"lookup_debounce":   f.LookupDebounce,
		"notify_timeout":    f.NotifyTimeout,
	}
}

// MergeWithDefaults returns defaults overridden by every non-empty file value.
// Validate must have succeeded first.
func (f *FileConfig) MergeWithDefaults(defaults Config) Config {
	result := defaults

	if f.Port != 0 {
		result.Port = f.Port
	}
	if f.DatabaseURL != "" {
		result.DatabaseURL = f.DatabaseURL
	}
	if f.SQLitePath != "" {
		result.SQLitePath = f.SQLitePath
	}
	if f.NotifyFrom != "" {
		result.NotifyFrom = f.NotifyFrom
	}
	if len(f.NotifyTo) > 0 {
		result.NotifyTo = append([]string(nil), f.NotifyTo...)
	}
	if strings.TrimSpace(f.CORSOrigin) != "" {
		result.CORSOrigin = f.CORSOrigin
	}

	mergeDuration(&result.SessionTTL, f.SessionTTL)
	mergeDuration(&result.RevealCharDelay, f.RevealCharDelay)
	mergeDuration(&result.RevealDwell, f.RevealDwell)
	mergeDuration(&result.LookupDebounce, f.LookupDebounce)
	mergeDuration(&result.NotifyTimeout, f.NotifyTimeout)

	return result
}

func mergeDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}
