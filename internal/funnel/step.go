// Package funnel implements the onboarding funnel state machine: step sequencing,
// branch selection on the interview-experience answer, per-step validation and
// the single persistence checkpoint.
//
// The machine performs no I/O. Transitions return Commands which the caller
// executes; this keeps the exactly-once checkpoint observable in tests.
package funnel

import (
	"strings"

	"github.com/jonathan/prep-mirrors/internal/types"
)

// Step is an ordinal in the step table.
type Step int

// Funnel steps in ordinal order.
const (
	RoleEntry Step = iota
	LevelSelect
	ExperienceQuery
	TargetAreaSelect
	SummaryReveal
	SocialCTA
)

var stepNames = [...]string{
	RoleEntry:        "role_entry",
	LevelSelect:      "level_select",
	ExperienceQuery:  "experience_query",
	TargetAreaSelect: "target_area_select",
	SummaryReveal:    "summary_reveal",
	SocialCTA:        "social_cta",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// Field names an AnswerSet field a step requires.
type Field string

// AnswerSet field references.
const (
	FieldRole        Field = "role"
	FieldLevel       Field = "level"
	FieldExperience  Field = "has_prior_interview_experience"
	FieldTargetAreas Field = "target_areas"
)

// StepDefinition is one static row of the step table.
type StepDefinition struct {
	Step           Step
	RequiredFields []Field
	// SkippableWhen reports whether the step is skipped for the given answers.
	SkippableWhen func(types.AnswerSet) bool
	// Valid is the gate checked before leaving the step.
	Valid      func(types.AnswerSet) bool
	Terminal   bool
	Checkpoint func(types.AnswerSet) bool
}

func never(types.AnswerSet) bool  { return false }
func always(types.AnswerSet) bool { return true }

// Steps is the static step table, indexed by Step.
var Steps = []StepDefinition{
	{
		Step:           RoleEntry,
		RequiredFields: []Field{FieldRole},
		SkippableWhen:  never,
		Valid: func(a types.AnswerSet) bool {
			return strings.TrimSpace(a.Role) != ""
		},
		Checkpoint: never,
	},
	{
		Step:           LevelSelect,
		RequiredFields: []Field{FieldLevel},
		SkippableWhen:  never,
		Valid: func(a types.AnswerSet) bool {
			return a.Level.Valid()
		},
		Checkpoint: never,
	},
	{
		Step:           ExperienceQuery,
		RequiredFields: []Field{FieldExperience},
		SkippableWhen:  never,
		Valid: func(a types.AnswerSet) bool {
			return a.HasPriorInterviewExperience != nil
		},
		// The target-area step is skipped, so the branch is final here.
		Checkpoint: func(a types.AnswerSet) bool {
			return a.ExperienceIs(false)
		},
	},
	{
		Step:           TargetAreaSelect,
		RequiredFields: []Field{FieldTargetAreas},
		SkippableWhen: func(a types.AnswerSet) bool {
			return a.ExperienceIs(false)
		},
		Valid: func(a types.AnswerSet) bool {
			return len(a.TargetAreas) > 0 || a.ExperienceIs(false)
		},
		Checkpoint: always,
	},
	{
		Step:          SummaryReveal,
		SkippableWhen: never,
		Valid:         always,
		Checkpoint:    never,
	},
	{
		Step:          SocialCTA,
		SkippableWhen: never,
		Valid:         always,
		Terminal:      true,
		Checkpoint:    never,
	},
}

// Definition returns the table row for s.
func Definition(s Step) StepDefinition {
	return Steps[s]
}

// IsStepValid evaluates the validation rule of step against answers.
func IsStepValid(step Step, answers types.AnswerSet) bool {
	if step < 0 || int(step) >= len(Steps) {
		return false
	}
	return Steps[step].Valid(answers)
}

// nextStep returns the first non-skipped ordinal after s.
func nextStep(s Step, answers types.AnswerSet) Step {
	next := s + 1
	for int(next) < len(Steps)-1 && Steps[next].SkippableWhen(answers) {
		next++
	}
	return next
}

// VisibleSteps returns the steps a visitor walks through for the given answers.
// An unset experience flag counts the conditional step as visible.
func VisibleSteps(answers types.AnswerSet) []Step {
	visible := make([]Step, 0, len(Steps))
	for _, def := range Steps {
		if def.SkippableWhen(answers) {
			continue
		}
		visible = append(visible, def.Step)
	}
	return visible
}

// Progress is the position of the current step among the visible steps.
type Progress struct {
	Position int `json:"position"`
	Total    int `json:"total"`
}

// ProgressOf computes the progress indicator for step s.
func ProgressOf(s Step, answers types.AnswerSet) Progress {
	visible := VisibleSteps(answers)
	pos := 0
	for i, v := range visible {
		if v <= s {
			pos = i
		}
	}
	return Progress{Position: pos, Total: len(visible)}
}
