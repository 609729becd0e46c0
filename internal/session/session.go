// Package session runs funnel sessions: one state machine, one role lookup and
// at most one summary reveal per visitor, with the commands the machine emits
// executed against the data and notification gateways.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/schemas"
	"github.com/jonathan/prep-mirrors/internal/suggest"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// ErrDismissed is returned by every operation on a dismissed session.
var ErrDismissed = errors.New("funnel session was dismissed")

// CheckpointTimeout bounds a single checkpoint write.
const CheckpointTimeout = 15 * time.Second

// Notifier dispatches lifecycle notifications without blocking.
type Notifier interface {
	Signup(email string)
	OnboardingComplete(email string, snapshot types.WaitlistUpdate)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Gateway  gateway.DataGateway
	Searcher suggest.Searcher
	Notifier Notifier
	Reveal   funnel.RevealConfig
	Debounce time.Duration
}

// View is the rendered state of a session.
type View struct {
	SessionID       uuid.UUID               `json:"session_id"`
	Step            string                  `json:"step"`
	StepIndex       int                     `json:"step_index"`
	Progress        funnel.Progress         `json:"progress"`
	Answers         types.AnswerSet         `json:"answers"`
	RoleInput       string                  `json:"role_input"`
	CanAdvance      bool                    `json:"can_advance"`
	CanRetreat      bool                    `json:"can_retreat"`
	Checkpoint      funnel.CheckpointStatus `json:"checkpoint"`
	CheckpointError string                  `json:"checkpoint_error,omitempty"`
	Summary         string                  `json:"summary,omitempty"`
	SummaryComplete bool                    `json:"summary_complete"`
}

// RevealEvent is one update of the summary reveal.
type RevealEvent struct {
	Text     string `json:"text"`
	Complete bool   `json:"complete"`
}

// Session is the server-side runtime of one funnel run. All mutations happen
// under mu; background work re-checks closed before touching state.
type Session struct {
	ID      uuid.UUID
	EntryID uuid.UUID

	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	lookup *suggest.Lookup
	wg     sync.WaitGroup

	mu         sync.Mutex
	machine    *funnel.Machine
	reveal     *funnel.Reveal
	summary    string
	revealed   string
	subs       map[int]chan RevealEvent
	nextSub    int
	closed     bool
	lastActive time.Time
}

// New starts a session for a freshly created waitlist entry.
func New(id uuid.UUID, entry types.WaitlistEntry, deps Deps) *Session {
	if deps.Reveal == (funnel.RevealConfig{}) {
		deps.Reveal = funnel.DefaultRevealConfig
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := funnel.New()
	m.AttachRecord(entry.ID, entry.Email)

	s := &Session{
		ID:         id,
		EntryID:    entry.ID,
		deps:       deps,
		ctx:        ctx,
		cancel:     cancel,
		machine:    m,
		subs:       make(map[int]chan RevealEvent),
		lastActive: time.Now(),
	}
	if deps.Searcher != nil {
		s.lookup = suggest.NewLookup(ctx, deps.Searcher, deps.Debounce)
	}
	return s
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	st := s.machine.Snapshot()
	return View{
		SessionID:       s.ID,
		Step:            st.Step.String(),
		StepIndex:       int(st.Step),
		Progress:        funnel.ProgressOf(st.Step, st.Answers),
		Answers:         st.Answers,
		RoleInput:       st.RoleInput,
		CanAdvance:      s.machine.CanAdvance(),
		CanRetreat:      s.machine.CanRetreat(),
		Checkpoint:      st.Checkpoint,
		CheckpointError: st.CheckpointError,
		Summary:         s.revealed,
		SummaryComplete: st.Revealed,
	}
}

// State returns a deep copy of the machine state.
func (s *Session) State() funnel.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// LastActive returns the time of the last call that touched the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether the session was dismissed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// mutate runs fn under the lock and returns the resulting view.
func (s *Session) mutate(fn func() error) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrDismissed
	}
	s.lastActive = time.Now()
	if err := fn(); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// UpdateAnswers merges a partial answer set.
func (s *Session) UpdateAnswers(p funnel.Patch) (View, error) {
	return s.mutate(func() error {
		return s.machine.UpdateAnswers(p)
	})
}

// ToggleTargetArea adds or removes one improvement tag.
func (s *Session) ToggleTargetArea(tag string) (View, error) {
	return s.mutate(func() error {
		return s.machine.ToggleTargetArea(tag)
	})
}

// Advance moves forward and executes the resulting commands.
func (s *Session) Advance() (View, error) {
	return s.mutate(func() error {
		cmds, err := s.machine.Advance()
		if err != nil {
			return err
		}
		s.execLocked(cmds)
		return nil
	})
}

// Retreat moves back one visible step.
func (s *Session) Retreat() (View, error) {
	return s.mutate(func() error {
		return s.machine.Retreat()
	})
}

// RetryCheckpoint re-issues a failed checkpoint. A rejected payload returns
// its validation error.
func (s *Session) RetryCheckpoint() (View, error) {
	return s.mutate(func() error {
		cmds, err := s.machine.RetryCheckpoint()
		if err != nil {
			return err
		}
		s.execLocked(cmds)
		return s.machine.Rejection()
	})
}

// SetRoleQuery records raw role text and schedules a debounced lookup.
func (s *Session) SetRoleQuery(text string) (View, error) {
	return s.mutate(func() error {
		if err := s.machine.SetRoleText(text); err != nil {
			return err
		}
		if s.lookup != nil {
			s.lookup.SetQuery(text)
		}
		return nil
	})
}

// Suggestions returns the role suggestion list.
func (s *Session) Suggestions() (suggest.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return suggest.View{}, ErrDismissed
	}
	if s.lookup == nil {
		return suggest.View{Selected: -1, Items: []suggest.Suggestion{}}, nil
	}
	return s.lookup.View(), nil
}

// NavigateRole moves the highlighted suggestion or confirms it.
func (s *Session) NavigateRole(action string) (View, error) {
	return s.mutate(func() error {
		if s.lookup == nil {
			return suggest.ErrNoSelection
		}
		switch action {
		case types.NavigateNext:
			s.lookup.Next()
		case types.NavigatePrev:
			s.lookup.Prev()
		case types.NavigateConfirm:
			chosen, err := s.lookup.Confirm()
			if err != nil {
				return err
			}
			return s.machine.ConfirmRole(chosen.Name)
		default:
			return fmt.Errorf("unknown navigation action %q", action)
		}
		return nil
	})
}

// SelectRole confirms the suggestion at index i.
func (s *Session) SelectRole(i int) (View, error) {
	return s.mutate(func() error {
		if s.lookup == nil {
			return suggest.ErrNoSelection
		}
		chosen, err := s.lookup.Select(i)
		if err != nil {
			return err
		}
		return s.machine.ConfirmRole(chosen.Name)
	})
}

// Subscribe returns the revealed prefix so far and a channel of later reveal
// events. The channel is closed when the reveal completes or the session is
// dismissed. Call the returned func to unsubscribe early.
func (s *Session) Subscribe() (RevealEvent, <-chan RevealEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return RevealEvent{}, nil, nil, ErrDismissed
	}

	st := s.machine.Snapshot()
	current := RevealEvent{Text: s.revealed, Complete: st.Revealed}
	ch := make(chan RevealEvent, 64)
	if st.Revealed || st.Step != funnel.SummaryReveal {
		close(ch)
		return current, ch, func() {}, nil
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return current, ch, unsubscribe, nil
}

// Dismiss cancels every pending timer, lookup and remote call. Callbacks that
// fire afterwards are ignored.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	if s.lookup != nil {
		s.lookup.Close()
	}
	if s.reveal != nil {
		s.reveal.Cancel()
	}
	s.closeSubsLocked()
}

// Wait blocks until background checkpoint writes have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// execLocked executes the commands emitted by a transition.
func (s *Session) execLocked(cmds []funnel.Command) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case funnel.CheckpointCommand:
			s.checkpointLocked(c)
		case funnel.NotifyOnboardingCommand:
			if s.deps.Notifier != nil {
				s.deps.Notifier.OnboardingComplete(c.Email, c.Snapshot)
			}
		case funnel.StartRevealCommand:
			s.startRevealLocked(c.Text)
		default:
			log.Printf("[funnel] session %s: unknown command %s", s.ID, cmd.Kind())
		}
	}
}

func (s *Session) checkpointLocked(c funnel.CheckpointCommand) {
	if err := schemas.ValidateCheckpoint(c.Update); err != nil {
		log.Printf("[funnel] session %s: checkpoint payload rejected: %v", s.ID, err)
		s.machine.CheckpointRejected(err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, CheckpointTimeout)
		defer cancel()

		_, err := s.deps.Gateway.UpdateWaitlistEntry(ctx, c.RecordID, c.Update)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if err != nil {
			log.Printf("[funnel] session %s: checkpoint failed: %v", s.ID, err)
			s.machine.CheckpointFailed(&funnel.RemoteError{Op: "checkpoint", Err: err})
			return
		}
		log.Printf("[funnel] session %s: checkpoint saved for entry %s", s.ID, c.RecordID)
		s.execLocked(s.machine.CheckpointSucceeded())
	}()
}

func (s *Session) startRevealLocked(text string) {
	if s.reveal != nil {
		s.reveal.Cancel()
	}
	s.summary = text
	s.revealed = ""

	var r *funnel.Reveal
	r = funnel.StartReveal(s.ctx, text, s.deps.Reveal,
		func(prefix string) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed || s.reveal != r {
				return
			}
			s.revealed = prefix
			s.broadcastLocked(RevealEvent{Text: prefix})
		},
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed || s.reveal != r {
				return
			}
			if err := s.machine.FinishReveal(); err != nil {
				log.Printf("[funnel] session %s: finish reveal: %v", s.ID, err)
				return
			}
			s.revealed = s.summary
			s.broadcastLocked(RevealEvent{Text: s.summary, Complete: true})
			s.closeSubsLocked()
		},
	)
	s.reveal = r
}

// broadcastLocked fans an event out to subscribers, dropping it for slow ones.
// Progress events carry the whole prefix, so a dropped one loses nothing.
func (s *Session) broadcastLocked(ev RevealEvent) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) closeSubsLocked() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}
