package funnel

import (
	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// Command is a side effect requested by a transition. The caller executes it.
type Command interface {
	Kind() string
}

// CheckpointCommand persists the answers collected so far.
type CheckpointCommand struct {
	RecordID uuid.UUID
	Update   types.WaitlistUpdate
}

// Kind implements Command.
func (CheckpointCommand) Kind() string { return "checkpoint" }

// NotifyOnboardingCommand sends the onboarding-complete notification.
type NotifyOnboardingCommand struct {
	Email    string
	Snapshot types.WaitlistUpdate
}

// Kind implements Command.
func (NotifyOnboardingCommand) Kind() string { return "notify_onboarding" }

// StartRevealCommand starts the timed character reveal of Text.
type StartRevealCommand struct {
	Text string
}

// Kind implements Command.
func (StartRevealCommand) Kind() string { return "start_reveal" }
