package main

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/prep-mirrors/internal/db/sqlite"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu          sync.Mutex
	onboardings []types.WaitlistUpdate
}

func (r *recordingNotifier) Signup(string) {}

func (r *recordingNotifier) OnboardingComplete(_ string, snapshot types.WaitlistUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onboardings = append(r.onboardings, snapshot)
}

func fastOptions(email string) simulateOptions {
	return simulateOptions{
		Email:    email,
		Role:     "Data Scientist",
		Level:    types.LevelSenior,
		Reveal:   funnel.RevealConfig{Dwell: time.Millisecond},
		Debounce: time.Millisecond,
	}
}

func TestSimulate_ExperiencedMemory(t *testing.T) {
	st := gateway.NewMemory(types.JobTitle{Name: "Data Scientist", Slug: "data-scientist"})
	notifier := &recordingNotifier{}
	opts := fastOptions("sim@example.com")
	opts.Experienced = true
	opts.Areas = []string{"Confidence", "STAR Method"}

	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), &out, st, notifier, opts))

	text := out.String()
	assert.Contains(t, text, "FUNNEL · ROLE ENTRY")
	assert.Contains(t, text, "FUNNEL · TARGET AREA SELECT")
	assert.Contains(t, text, "FUNNEL · SOCIAL CTA")
	assert.Contains(t, text, "WAITLIST ENTRY")
	assert.Equal(t, 1, st.Updates())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.onboardings, 1)
	assert.Equal(t, types.WaitlistUpdate{
		Role:              "Data Scientist",
		Level:             "Senior",
		InterviewedBefore: true,
		TargetAreas:       []string{"Confidence", "STAR Method"},
	}, notifier.onboardings[0])
}

func TestSimulate_FirstTimerSQLite(t *testing.T) {
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	defer st.Close()

	opts := fastOptions("first@example.com")
	opts.Role = "Beekeeper"
	opts.Experienced = false
	opts.Areas = []string{"Confidence"}

	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), &out, st, &recordingNotifier{}, opts))
	assert.NotContains(t, out.String(), "TARGET AREA SELECT")

	entries, total, err := st.ListWaitlistEntries(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, entries[0].Role)
	assert.Equal(t, "Beekeeper", *entries[0].Role)
	require.NotNil(t, entries[0].InterviewedBefore)
	assert.False(t, *entries[0].InterviewedBefore)
	assert.Empty(t, entries[0].TargetAreas)
}

func TestSimulate_DuplicateEmail(t *testing.T) {
	st := gateway.NewMemory()
	_, err := st.CreateWaitlistEntry(context.Background(), "dup@example.com")
	require.NoError(t, err)

	err = simulate(context.Background(), &bytes.Buffer{}, st, &recordingNotifier{}, fastOptions("dup@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrEmailExists)
}
