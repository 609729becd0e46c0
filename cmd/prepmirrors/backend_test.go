package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/jonathan/prep-mirrors/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTitles(t *testing.T) {
	input := `
# comment
Software Engineer
  Data Scientist  

software engineer
Señor Developer
`
	titles, err := readTitles(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, titles, 3)
	assert.Equal(t, "Software Engineer", titles[0].Name)
	assert.Equal(t, "software-engineer", titles[0].Slug)
	assert.Equal(t, "Data Scientist", titles[1].Name)
	assert.Equal(t, "senor-developer", titles[2].Slug)
}

func TestReadTitles_Unsluggable(t *testing.T) {
	_, err := readTitles(strings.NewReader("Engineer\n!!!\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDefaultTitles(t *testing.T) {
	titles, err := readTitles(strings.NewReader(defaultTitles))
	require.NoError(t, err)
	assert.Greater(t, len(titles), 50)
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := config.Defaults()
	be, err := openBackend(context.Background(), &cfg, false)
	require.NoError(t, err)
	defer be.close()

	assert.Equal(t, "memory", be.name)
	titles, err := be.store.SearchJobTitles(context.Background(), "engineer")
	require.NoError(t, err)
	assert.Len(t, titles, 8)
}

func TestOpenBackend_SQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "waitlist.db")

	be, err := openBackend(context.Background(), &cfg, true)
	require.NoError(t, err)
	defer be.close()

	assert.Equal(t, "sqlite", be.name)
	n, err := be.store.CountWaitlistEntries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildNotifier(t *testing.T) {
	cfg := config.Defaults()
	_, logged := buildNotifier(&cfg).(notify.LogNotifier)
	assert.True(t, logged)

	cfg.ResendAPIKey = "re_test"
	cfg.NotifyTo = []string{"team@example.com"}
	_, resend := buildNotifier(&cfg).(*notify.Resend)
	assert.True(t, resend)
}
