package funnel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// CheckpointStatus tracks the single persistence call of a run.
type CheckpointStatus string

// Checkpoint statuses.
const (
	CheckpointNone    CheckpointStatus = "none"
	CheckpointPending CheckpointStatus = "pending"
	CheckpointSaved   CheckpointStatus = "saved"
	CheckpointFailed  CheckpointStatus = "failed"
	// CheckpointRejected marks a payload the store contract refuses; retrying
	// the same locked answers cannot succeed.
	CheckpointRejected CheckpointStatus = "rejected"
)

// State is a snapshot of one funnel run.
type State struct {
	Step            Step             `json:"-"`
	Answers         types.AnswerSet  `json:"answers"`
	RoleInput       string           `json:"role_input"`
	RecordID        *uuid.UUID       `json:"record_id,omitempty"`
	Email           string           `json:"-"`
	Checkpoint      CheckpointStatus `json:"checkpoint"`
	CheckpointError string           `json:"checkpoint_error,omitempty"`
	Revealed        bool             `json:"revealed"`
}

// Patch is a partial AnswerSet. Nil fields are left untouched.
type Patch struct {
	RoleText                    *string
	Level                       *types.Level
	HasPriorInterviewExperience *bool
	TargetAreas                 []string
}

// Machine is the funnel state machine. Advance, Retreat, UpdateAnswers,
// ToggleTargetArea and ConfirmRole are the only mutators of the answers and
// step index. A Machine is not safe for concurrent use.
type Machine struct {
	state        State
	checkpointed bool
	rejection    error
}

// New creates a machine at RoleEntry with empty answers and no remote record.
func New() *Machine {
	return &Machine{
		state: State{
			Step:       RoleEntry,
			Checkpoint: CheckpointNone,
		},
	}
}

// AttachRecord links the run to the waitlist entry created at email capture.
func (m *Machine) AttachRecord(id uuid.UUID, email string) {
	m.state.RecordID = &id
	m.state.Email = email
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() State {
	s := m.state
	s.Answers = m.state.Answers.Clone()
	if m.state.RecordID != nil {
		id := *m.state.RecordID
		s.RecordID = &id
	}
	return s
}

// Step returns the current step.
func (m *Machine) Step() Step {
	return m.state.Step
}

// CanAdvance reports whether the current step's validation passes.
func (m *Machine) CanAdvance() bool {
	def := Steps[m.state.Step]
	if def.Terminal {
		return false
	}
	if m.state.Step == SummaryReveal {
		return m.state.Revealed
	}
	if _, ok := m.firstInvalidBefore(m.state.Step); ok {
		return false
	}
	return def.Valid(m.state.Answers)
}

// firstInvalidBefore returns the earliest visible step before cur whose gate
// no longer passes, e.g. RoleEntry after the confirmed role was edited away.
func (m *Machine) firstInvalidBefore(cur Step) (Step, bool) {
	for s := RoleEntry; s < cur && s < SummaryReveal; s++ {
		def := Steps[s]
		if def.SkippableWhen(m.state.Answers) {
			continue
		}
		if !def.Valid(m.state.Answers) {
			return s, true
		}
	}
	return cur, false
}

// CanRetreat reports whether Retreat would move the step index.
func (m *Machine) CanRetreat() bool {
	return m.state.Step > RoleEntry && m.state.Step < SummaryReveal
}

// Advance moves to the next non-skipped step when the current step and every
// visible step before it are valid. When an earlier step has been invalidated
// the machine moves back to it and returns its ValidationError; on any other
// error the state is left unchanged.
func (m *Machine) Advance() ([]Command, error) {
	cur := m.state.Step
	def := Steps[cur]
	if def.Terminal {
		return nil, ErrTerminal
	}
	if cur == SummaryReveal && !m.state.Revealed {
		return nil, ErrRevealInProgress
	}
	if prev, ok := m.firstInvalidBefore(cur); ok {
		m.state.Step = prev
		return nil, &ValidationError{
			Step:    prev,
			Fields:  Steps[prev].RequiredFields,
			Message: "an earlier answer changed and must be confirmed again",
		}
	}
	if !def.Valid(m.state.Answers) {
		return nil, &ValidationError{
			Step:    cur,
			Fields:  def.RequiredFields,
			Message: "answer required before continuing",
		}
	}

	var cmds []Command
	if def.Checkpoint(m.state.Answers) {
		cmds = append(cmds, m.checkpoint()...)
	}

	next := nextStep(cur, m.state.Answers)
	m.state.Step = next
	if next == SummaryReveal {
		m.state.Revealed = false
		a := m.state.Answers
		cmds = append(cmds, StartRevealCommand{Text: ComposeSummary(a.Role, a.Level, a.TargetAreas)})
	}
	return cmds, nil
}

// checkpoint emits the persistence command at most once per run.
func (m *Machine) checkpoint() []Command {
	if m.checkpointed {
		return nil
	}
	m.checkpointed = true
	return m.checkpointCommand()
}

func (m *Machine) checkpointCommand() []Command {
	if m.state.RecordID == nil {
		m.state.Checkpoint = CheckpointFailed
		m.state.CheckpointError = ErrNoRecord.Error()
		return nil
	}
	m.state.Checkpoint = CheckpointPending
	m.state.CheckpointError = ""
	return []Command{CheckpointCommand{
		RecordID: *m.state.RecordID,
		Update:   types.UpdateFromAnswers(m.state.Answers),
	}}
}

// CheckpointSucceeded records a successful persistence call and returns the
// onboarding notification to dispatch.
func (m *Machine) CheckpointSucceeded() []Command {
	if m.state.Checkpoint != CheckpointPending {
		return nil
	}
	m.state.Checkpoint = CheckpointSaved
	m.state.CheckpointError = ""
	return []Command{NotifyOnboardingCommand{
		Email:    m.state.Email,
		Snapshot: types.UpdateFromAnswers(m.state.Answers),
	}}
}

// CheckpointFailed records a failed persistence call as a retryable condition.
func (m *Machine) CheckpointFailed(err error) {
	if m.state.Checkpoint != CheckpointPending {
		return
	}
	m.state.Checkpoint = CheckpointFailed
	m.state.CheckpointError = err.Error()
}

// CheckpointRejected records a payload that failed validation before it was
// sent. The run keeps moving but the checkpoint is not retryable.
func (m *Machine) CheckpointRejected(err error) {
	if m.state.Checkpoint != CheckpointPending {
		return
	}
	m.state.Checkpoint = CheckpointRejected
	m.state.CheckpointError = err.Error()
	m.rejection = err
}

// Rejection returns the validation error of a rejected checkpoint, or nil.
func (m *Machine) Rejection() error {
	if m.state.Checkpoint != CheckpointRejected {
		return nil
	}
	return m.rejection
}

// RetryCheckpoint re-issues a failed checkpoint. A rejected payload is
// returned as an error wrapping ErrCheckpointRejected and the rejection cause.
func (m *Machine) RetryCheckpoint() ([]Command, error) {
	if err := m.Rejection(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckpointRejected, err)
	}
	if m.state.Checkpoint != CheckpointFailed {
		return nil, ErrNothingToRetry
	}
	cmds := m.checkpointCommand()
	if len(cmds) == 0 {
		return nil, ErrNoRecord
	}
	return cmds, nil
}

// FinishReveal is called when the timed reveal completes; it auto-advances to SocialCTA.
func (m *Machine) FinishReveal() error {
	if m.state.Step != SummaryReveal {
		return ErrNotRevealing
	}
	m.state.Revealed = true
	m.state.Step = SocialCTA
	return nil
}

// Retreat moves to the previous step, floored at RoleEntry. It is disabled
// from SummaryReveal onwards.
func (m *Machine) Retreat() error {
	cur := m.state.Step
	if cur >= SummaryReveal {
		return ErrRetreatDisabled
	}
	if cur == RoleEntry {
		return nil
	}
	prev := cur - 1
	for prev > RoleEntry && Steps[prev].SkippableWhen(m.state.Answers) {
		prev--
	}
	m.state.Step = prev
	return nil
}

func (m *Machine) locked() bool {
	return m.state.Step >= SummaryReveal
}

// UpdateAnswers merges p into the answers. Raw role text that differs from
// the confirmed role clears the confirmation.
func (m *Machine) UpdateAnswers(p Patch) error {
	if m.locked() {
		return ErrAnswersLocked
	}
	if p.Level != nil && *p.Level != "" && !p.Level.Valid() {
		return &ValidationError{Step: m.state.Step, Fields: []Field{FieldLevel}, Message: "unknown level"}
	}

	if p.RoleText != nil {
		m.setRoleText(*p.RoleText)
	}
	if p.Level != nil {
		m.state.Answers.Level = *p.Level
	}
	if p.HasPriorInterviewExperience != nil {
		v := *p.HasPriorInterviewExperience
		m.state.Answers.HasPriorInterviewExperience = &v
	}
	if p.TargetAreas != nil {
		areas := make([]string, 0, len(p.TargetAreas))
		for _, tag := range p.TargetAreas {
			tag = strings.TrimSpace(tag)
			if tag != "" && !slices.Contains(areas, tag) {
				areas = append(areas, tag)
			}
		}
		m.state.Answers.TargetAreas = areas
	}
	return nil
}

// SetRoleText records raw typed role text.
func (m *Machine) SetRoleText(text string) error {
	if m.locked() {
		return ErrAnswersLocked
	}
	m.setRoleText(text)
	return nil
}

func (m *Machine) setRoleText(text string) {
	m.state.RoleInput = text
	if text != m.state.Answers.Role {
		m.state.Answers.Role = ""
	}
}

// ConfirmRole sets the confirmed role. It is the only path that does.
func (m *Machine) ConfirmRole(role string) error {
	if m.locked() {
		return ErrAnswersLocked
	}
	if strings.TrimSpace(role) == "" {
		return &ValidationError{Step: m.state.Step, Fields: []Field{FieldRole}, Message: "role cannot be blank"}
	}
	m.state.RoleInput = role
	m.state.Answers.Role = role
	return nil
}

// ToggleTargetArea adds tag when absent and removes it when present.
func (m *Machine) ToggleTargetArea(tag string) error {
	if m.locked() {
		return ErrAnswersLocked
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return &ValidationError{Step: m.state.Step, Fields: []Field{FieldTargetAreas}, Message: "tag cannot be blank"}
	}
	areas := m.state.Answers.TargetAreas
	if i := slices.Index(areas, tag); i >= 0 {
		m.state.Answers.TargetAreas = slices.Delete(slices.Clone(areas), i, i+1)
		return nil
	}
	m.state.Answers.TargetAreas = append(slices.Clone(areas), tag)
	return nil
}
