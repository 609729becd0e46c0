package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/schemas"
	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastReveal = funnel.RevealConfig{CharDelay: 0, Dwell: 20 * time.Millisecond}

type recordingNotifier struct {
	mu          sync.Mutex
	signups     []string
	onboardings []types.WaitlistUpdate
}

func (r *recordingNotifier) Signup(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signups = append(r.signups, email)
}

func (r *recordingNotifier) OnboardingComplete(_ string, snapshot types.WaitlistUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onboardings = append(r.onboardings, snapshot)
}

func (r *recordingNotifier) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signups), len(r.onboardings)
}

// flakyGateway fails the first failUpdates checkpoint writes.
type flakyGateway struct {
	*gateway.Memory
	mu          sync.Mutex
	failUpdates int
	attempts    int
}

func (f *flakyGateway) UpdateWaitlistEntry(ctx context.Context, id uuid.UUID, u types.WaitlistUpdate) (*types.WaitlistEntry, error) {
	f.mu.Lock()
	f.attempts++
	fail := f.attempts <= f.failUpdates
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return f.Memory.UpdateWaitlistEntry(ctx, id, u)
}

func newTestManager(t *testing.T, gw gateway.DataGateway, reveal funnel.RevealConfig) (*Manager, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	m := NewManager(Deps{
		Gateway:  gw,
		Searcher: gw,
		Notifier: notifier,
		Reveal:   reveal,
		Debounce: time.Millisecond,
	}, time.Hour)
	return m, notifier
}

func confirmRole(t *testing.T, s *Session, role string) {
	t.Helper()
	_, err := s.SetRoleQuery(role)
	require.NoError(t, err)
	view, err := s.SelectRole(0)
	require.NoError(t, err)
	require.Equal(t, role, view.Answers.Role)
}

func boolPtr(v bool) *bool { return &v }

func levelPtr(l types.Level) *types.Level { return &l }

func waitForReveal(t *testing.T, s *Session) {
	t.Helper()
	_, ch, _, err := s.Subscribe()
	require.NoError(t, err)
	select {
	case <-drain(ch):
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not complete")
	}
}

func drain(ch <-chan RevealEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}

func TestSession_ExperiencedPath(t *testing.T) {
	mem := gateway.NewMemory()
	m, notifier := newTestManager(t, mem, fastReveal)

	entry, s, err := m.Signup(context.Background(), "Dev@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", entry.Email)
	assert.Equal(t, "role_entry", s.View().Step)

	_, err = s.Advance()
	require.True(t, funnel.IsValidation(err), "role is required")

	confirmRole(t, s, "Backend Engineer")
	_, err = s.Advance()
	require.NoError(t, err)

	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelSenior)})
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)

	_, err = s.UpdateAnswers(funnel.Patch{HasPriorInterviewExperience: boolPtr(true)})
	require.NoError(t, err)
	view, err := s.Advance()
	require.NoError(t, err)
	assert.Equal(t, "target_area_select", view.Step)
	assert.Equal(t, funnel.CheckpointNone, view.Checkpoint)

	_, err = s.ToggleTargetArea("Confidence")
	require.NoError(t, err)
	view, err = s.Advance()
	require.NoError(t, err)
	assert.Equal(t, "summary_reveal", view.Step)
	assert.False(t, view.CanRetreat)

	_, err = s.Advance()
	assert.ErrorIs(t, err, funnel.ErrRevealInProgress)

	waitForReveal(t, s)
	s.Wait()

	view = s.View()
	assert.Equal(t, "social_cta", view.Step)
	assert.True(t, view.SummaryComplete)
	assert.Contains(t, view.Summary, "Backend Engineer")
	assert.Equal(t, funnel.CheckpointSaved, view.Checkpoint)
	assert.Equal(t, 1, mem.Updates())

	require.Eventually(t, func() bool {
		_, onboardings := notifier.counts()
		return onboardings == 1
	}, time.Second, 5*time.Millisecond)
	signups, _ := notifier.counts()
	assert.Equal(t, 1, signups)

	_, err = s.Advance()
	assert.ErrorIs(t, err, funnel.ErrTerminal)
}

func TestSession_FirstTimerSkipsTargetAreas(t *testing.T) {
	mem := gateway.NewMemory()
	m, _ := newTestManager(t, mem, fastReveal)

	_, s, err := m.Signup(context.Background(), "new@example.com")
	require.NoError(t, err)

	confirmRole(t, s, "Designer")
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelJunior), HasPriorInterviewExperience: boolPtr(false)})
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)

	view, err := s.Advance()
	require.NoError(t, err)
	assert.Equal(t, "summary_reveal", view.Step)
	assert.Equal(t, funnel.Progress{Position: 3, Total: 5}, view.Progress)

	s.Wait()
	assert.Equal(t, 1, mem.Updates())
	waitForReveal(t, s)
	assert.Equal(t, "social_cta", s.View().Step)
}

func TestSession_CheckpointRetry(t *testing.T) {
	flaky := &flakyGateway{Memory: gateway.NewMemory(), failUpdates: 1}
	m, notifier := newTestManager(t, flaky, funnel.RevealConfig{CharDelay: time.Millisecond, Dwell: time.Hour})

	_, s, err := m.Signup(context.Background(), "retry@example.com")
	require.NoError(t, err)
	defer s.Dismiss()

	confirmRole(t, s, "Analyst")
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelMid), HasPriorInterviewExperience: boolPtr(false)})
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)

	s.Wait()
	view := s.View()
	assert.Equal(t, funnel.CheckpointFailed, view.Checkpoint)
	assert.Contains(t, view.CheckpointError, "connection reset")
	assert.Equal(t, "summary_reveal", view.Step, "a failed checkpoint never blocks navigation")

	view, err = s.RetryCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, funnel.CheckpointPending, view.Checkpoint)

	s.Wait()
	assert.Equal(t, funnel.CheckpointSaved, s.View().Checkpoint)
	assert.Equal(t, 1, flaky.Updates())

	_, err = s.RetryCheckpoint()
	assert.ErrorIs(t, err, funnel.ErrNothingToRetry)

	require.Eventually(t, func() bool {
		_, onboardings := notifier.counts()
		return onboardings == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_RoleEditedAfterEntryMustBeReconfirmed(t *testing.T) {
	mem := gateway.NewMemory()
	m, _ := newTestManager(t, mem, fastReveal)
	_, s, err := m.Signup(context.Background(), "edit@example.com")
	require.NoError(t, err)

	confirmRole(t, s, "Engineer")
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelSenior)})
	require.NoError(t, err)

	text := "Engineerx"
	_, err = s.UpdateAnswers(funnel.Patch{RoleText: &text, HasPriorInterviewExperience: boolPtr(false)})
	require.NoError(t, err)

	view, err := s.Advance()
	require.True(t, funnel.IsValidation(err))
	assert.Equal(t, "role_entry", view.Step)
	assert.False(t, view.CanAdvance)
	s.Wait()
	assert.Equal(t, 0, mem.Updates())
	assert.Equal(t, funnel.CheckpointNone, view.Checkpoint)

	confirmRole(t, s, "Engineerx")
	for range 3 {
		_, err = s.Advance()
		require.NoError(t, err)
	}
	assert.Equal(t, "summary_reveal", s.View().Step)

	waitForReveal(t, s)
	s.Wait()
	view = s.View()
	assert.Equal(t, funnel.CheckpointSaved, view.Checkpoint)
	assert.Equal(t, 1, mem.Updates())
	assert.Contains(t, view.Summary, "Senior Engineerx")
}

func TestSession_RejectedCheckpointIsNotRetryable(t *testing.T) {
	mem := gateway.NewMemory()
	m, notifier := newTestManager(t, mem, funnel.RevealConfig{CharDelay: time.Millisecond, Dwell: time.Hour})
	_, s, err := m.Signup(context.Background(), "many@example.com")
	require.NoError(t, err)
	defer s.Dismiss()

	confirmRole(t, s, "Analyst")
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelLead), HasPriorInterviewExperience: boolPtr(true)})
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)

	for _, tag := range append(slices.Clone(types.TargetAreas), "Salary Negotiation") {
		_, err = s.ToggleTargetArea(tag)
		require.NoError(t, err)
	}
	view, err := s.Advance()
	require.NoError(t, err)
	assert.Equal(t, "summary_reveal", view.Step)
	assert.Equal(t, funnel.CheckpointRejected, view.Checkpoint)
	assert.NotEmpty(t, view.CheckpointError)

	view, err = s.RetryCheckpoint()
	assert.ErrorIs(t, err, funnel.ErrCheckpointRejected)
	var schemaErr *schemas.ValidationError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, funnel.CheckpointRejected, view.Checkpoint)

	s.Wait()
	assert.Equal(t, 0, mem.Updates())
	_, onboardings := notifier.counts()
	assert.Equal(t, 0, onboardings)
}

func TestSession_DismissStopsReveal(t *testing.T) {
	mem := gateway.NewMemory()
	m, _ := newTestManager(t, mem, funnel.RevealConfig{CharDelay: time.Millisecond, Dwell: 50 * time.Millisecond})

	_, s, err := m.Signup(context.Background(), "gone@example.com")
	require.NoError(t, err)

	confirmRole(t, s, "Nurse")
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.UpdateAnswers(funnel.Patch{Level: levelPtr(types.LevelLead), HasPriorInterviewExperience: boolPtr(false)})
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)
	_, err = s.Advance()
	require.NoError(t, err)

	_, ch, _, err := s.Subscribe()
	require.NoError(t, err)

	require.NoError(t, m.Dismiss(s.ID))
	select {
	case <-drain(ch):
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed on dismiss")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, funnel.SummaryReveal, s.State().Step, "dismissed reveal must not auto-advance")
	assert.True(t, s.Closed())

	_, err = s.Advance()
	assert.ErrorIs(t, err, ErrDismissed)
	_, err = s.Suggestions()
	assert.ErrorIs(t, err, ErrDismissed)

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_RoleNavigation(t *testing.T) {
	mem := gateway.NewMemory(
		types.JobTitle{Name: "Data Engineer"},
		types.JobTitle{Name: "Data Scientist"},
	)
	m, _ := newTestManager(t, mem, fastReveal)
	_, s, err := m.Signup(context.Background(), "nav@example.com")
	require.NoError(t, err)
	defer s.Dismiss()

	_, err = s.SetRoleQuery("data")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, err := s.Suggestions()
		return err == nil && len(v.Items) == 3
	}, time.Second, 5*time.Millisecond)

	_, err = s.NavigateRole(types.NavigateConfirm)
	assert.Error(t, err, "nothing highlighted yet")

	for range 5 {
		_, err = s.NavigateRole(types.NavigateNext)
		require.NoError(t, err)
	}
	v, err := s.Suggestions()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Selected, "clamped at the last entry")

	_, err = s.NavigateRole(types.NavigatePrev)
	require.NoError(t, err)
	view, err := s.NavigateRole(types.NavigateConfirm)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer", view.Answers.Role)
	assert.Equal(t, "Data Engineer", view.RoleInput)

	view, err = s.SetRoleQuery("Data Engineer II")
	require.NoError(t, err)
	assert.Empty(t, view.Answers.Role, "typing clears the confirmed role")
}

func TestSession_SubscribeAfterCompletion(t *testing.T) {
	mem := gateway.NewMemory()
	m, _ := newTestManager(t, mem, fastReveal)
	_, s, err := m.Signup(context.Background(), "late@example.com")
	require.NoError(t, err)

	current, ch, _, err := s.Subscribe()
	require.NoError(t, err)
	assert.False(t, current.Complete)
	_, open := <-ch
	assert.False(t, open, "no reveal running before the summary step")
}
