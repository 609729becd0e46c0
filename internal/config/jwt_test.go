package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", "0123456789abcdef-secret")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "0123456789abcdef-secret", cfg.Secret)
	assert.Equal(t, 24*time.Hour, cfg.TTL, "should use default TTL of 24 hours")
}

func TestNewJWTConfig_CustomTTL(t *testing.T) {
	tests := []struct {
		name    string
		ttl     string
		want    time.Duration
		wantErr bool
	}{
		{name: "two hours", ttl: "2h", want: 2 * time.Hour},
		{name: "minimum", ttl: "1m", want: time.Minute},
		{name: "below minimum", ttl: "30s", wantErr: true},
		{name: "not a duration", ttl: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_TOKEN_SECRET", "0123456789abcdef-secret")
			t.Setenv("SESSION_TOKEN_TTL", tt.ttl)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.TTL)
		})
	}
}

func TestNewJWTConfig_SecretRules(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", "")
	_, err := NewJWTConfig()
	assert.Error(t, err)

	t.Setenv("SESSION_TOKEN_SECRET", "short")
	_, err = NewJWTConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 bytes")
}
