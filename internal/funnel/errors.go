package funnel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTerminal is returned when advancing past the last step.
	ErrTerminal = errors.New("funnel is already at its final step")
	// ErrRevealInProgress is returned when the visitor tries to skip the summary reveal.
	ErrRevealInProgress = errors.New("summary reveal has not finished")
	// ErrRetreatDisabled is returned once the summary has started rendering.
	ErrRetreatDisabled = errors.New("cannot go back once the summary is shown")
	// ErrAnswersLocked is returned when answers are edited after they were persisted.
	ErrAnswersLocked = errors.New("answers can no longer be changed")
	// ErrNotRevealing is returned when a reveal completes outside the summary step.
	ErrNotRevealing = errors.New("funnel is not revealing a summary")
	// ErrNoRecord is recorded when a checkpoint fires before a waitlist entry exists.
	ErrNoRecord = errors.New("no waitlist entry attached to this funnel")
	// ErrNothingToRetry is returned when no failed checkpoint is pending.
	ErrNothingToRetry = errors.New("no failed checkpoint to retry")
	// ErrCheckpointRejected is returned when retrying a payload that failed validation.
	ErrCheckpointRejected = errors.New("checkpoint payload was rejected")
)

// ValidationError is a local input problem that blocks Advance.
type ValidationError struct {
	Step    Step
	Fields  []Field
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error at %s: %s", e.Step, e.Message)
	}
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("validation error at %s (%s): %s", e.Step, strings.Join(names, ", "), e.Message)
}

// RemoteError wraps a failed gateway call. It is never fatal to the funnel.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
