package ratelimit

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// envConfig mirrors the RATE_LIMIT_* environment variables.
type envConfig struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"300"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	Whitelist       []string      `env:"RATE_LIMIT_WHITELIST" envSeparator:","`
	Blacklist       []string      `env:"RATE_LIMIT_BLACKLIST" envSeparator:","`
	SignupLimit     int           `env:"RATE_LIMIT_SIGNUP_LIMIT" envDefault:"5"`
	SignupWindow    time.Duration `env:"RATE_LIMIT_SIGNUP_WINDOW" envDefault:"1h"`
}

// LoadConfig loads rate limiting configuration from environment variables.
// Unparseable values fall back to the defaults.
func LoadConfig() *Config {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		log.Printf("[rate-limit] invalid configuration, using defaults: %v", err)
		ec = envConfig{}
		_ = env.ParseWithOptions(&ec, env.Options{Environment: map[string]string{}})
	}
	if !ec.Enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    ec.DefaultLimit,
		DefaultWindow:   ec.DefaultWindow,
		CleanupInterval: ec.CleanupInterval,
		Whitelist:       ipSet(ec.Whitelist),
		Blacklist:       ipSet(ec.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(ec.SignupLimit, ec.SignupWindow),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits. Signup is the
// strictest since every call writes a row and sends an email.
func DefaultEndpointConfigs(signupLimit int, signupWindow time.Duration) []EndpointConfig {
	return []EndpointConfig{
		// Writes that reach the store or the mail provider
		{Path: "/waitlist", Method: "POST", Limit: signupLimit, Window: signupWindow, Burst: min(signupLimit, 3)},
		{Path: "/funnel/checkpoint/retry", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},

		// Per-keystroke role typing
		{Path: "/funnel/role/query", Method: "PUT", Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/job-titles", Method: "GET", Limit: 120, Window: time.Minute, Burst: 30},

		// Funnel navigation
		{Path: "/funnel/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/funnel/answers", Method: "PATCH", Limit: 120, Window: time.Minute, Burst: 20},

		{Path: "/admin/", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},

		// Everything else uses the default limit; health checks are unlimited (see matcher)
	}
}

// ipSet converts a list of addresses into a lookup set.
func ipSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
