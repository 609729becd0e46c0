package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Millisecond, cfg.RevealCharDelay)
	assert.Equal(t, time.Second, cfg.RevealDwell)
	assert.Equal(t, 300*time.Millisecond, cfg.LookupDebounce)
	assert.Equal(t, "memory", cfg.Backend())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("SQLITE_PATH", "/tmp/prep.db")
	t.Setenv("NOTIFY_TO", "a@example.com,b@example.com")
	t.Setenv("REVEAL_CHAR_DELAY", "5ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Backend())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.NotifyTo)
	assert.Equal(t, 5*time.Millisecond, cfg.RevealCharDelay)
	assert.Equal(t, time.Second, cfg.RevealDwell, "unset variables keep their default")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `{
		"port": 7070,
		"database_url": "postgres://localhost/prep",
		"session_ttl": "30m",
		"lookup_debounce": "150ms",
		"notify_to": ["team@example.com"]
	}`)
	t.Setenv("PORT", "6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Port, "environment wins over the file")
	assert.Equal(t, "postgres", cfg.Backend())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 150*time.Millisecond, cfg.LookupDebounce)
	assert.Equal(t, []string{"team@example.com"}, cfg.NotifyTo)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		errPart string
	}{
		{
			name:    "schema violation",
			content: `{"port": "eighty"}`,
			errPart: "invalid config file",
		},
		{
			name:    "malformed",
			content: `{ nope`,
			errPart: "config",
		},
		{
			name:    "both backends",
			content: `{"database_url": "postgres://x", "sqlite_path": "x.db"}`,
			errPart: "mutually exclusive",
		},
		{
			name:    "api key without recipients",
			content: `{}`,
			env:     map[string]string{"RESEND_API_KEY": "re_123"},
			errPart: "NOTIFY_TO",
		},
		{
			name:    "bad env duration",
			content: `{}`,
			env:     map[string]string{"SESSION_TTL": "forever"},
			errPart: "environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestFileConfig_MergeWithDefaults(t *testing.T) {
	fc := FileConfig{RevealDwell: "2s", CORSOrigin: "https://prepmirrors.example"}
	merged := fc.MergeWithDefaults(Defaults())

	assert.Equal(t, 2*time.Second, merged.RevealDwell)
	assert.Equal(t, "https://prepmirrors.example", merged.CORSOrigin)
	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, time.Hour, merged.SessionTTL)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.RevealDwell = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.SessionTTL = 0
	assert.Error(t, cfg.Validate())
}
