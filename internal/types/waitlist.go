// Package types provides type definitions shared by the funnel, the gateways and the HTTP API.
package types

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is the seniority a visitor is aiming for.
type Level string

// Level values offered by the level-select step.
const (
	LevelIntern Level = "Intern"
	LevelJunior Level = "Junior"
	LevelMid    Level = "Mid-level"
	LevelSenior Level = "Senior"
	LevelLead   Level = "Lead"
)

// Levels lists every valid level in display order.
var Levels = []Level{LevelIntern, LevelJunior, LevelMid, LevelSenior, LevelLead}

// Valid reports whether l is one of the five known levels.
func (l Level) Valid() bool {
	return slices.Contains(Levels, l)
}

// ParseLevel converts free text into a Level, matching case-insensitively.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	for _, l := range Levels {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// TargetAreas is the catalog of improvement tags offered by the target-area step.
var TargetAreas = []string{
	"Communication",
	"Technical Skills",
	"Confidence",
	"Body Language",
	"STAR Method",
	"Problem Solving",
}

// IsKnownTargetArea reports whether tag belongs to the TargetAreas catalog.
func IsKnownTargetArea(tag string) bool {
	return slices.Contains(TargetAreas, tag)
}

// AnswerSet is the cumulative input collected during one funnel run.
// Role holds the confirmed role only; raw typed text is tracked separately.
type AnswerSet struct {
	Role                        string   `json:"role"`
	Level                       Level    `json:"level"`
	HasPriorInterviewExperience *bool    `json:"has_prior_interview_experience"`
	TargetAreas                 []string `json:"target_areas"`
}

// Clone returns a deep copy so snapshots handed to other goroutines stay immutable.
func (a AnswerSet) Clone() AnswerSet {
	out := a
	if a.HasPriorInterviewExperience != nil {
		v := *a.HasPriorInterviewExperience
		out.HasPriorInterviewExperience = &v
	}
	out.TargetAreas = slices.Clone(a.TargetAreas)
	return out
}

// ExperienceIs reports whether the tri-state experience flag is set to v.
func (a AnswerSet) ExperienceIs(v bool) bool {
	return a.HasPriorInterviewExperience != nil && *a.HasPriorInterviewExperience == v
}

// WaitlistUpdate is the checkpoint payload written to a waitlist entry.
type WaitlistUpdate struct {
	Role              string   `json:"role"`
	Level             string   `json:"level"`
	InterviewedBefore bool     `json:"interviewed_before"`
	TargetAreas       []string `json:"target_areas"`
}

// UpdateFromAnswers builds the checkpoint payload. An unset experience flag is stored as false.
func UpdateFromAnswers(a AnswerSet) WaitlistUpdate {
	areas := slices.Clone(a.TargetAreas)
	if areas == nil {
		areas = []string{}
	}
	return WaitlistUpdate{
		Role:              a.Role,
		Level:             string(a.Level),
		InterviewedBefore: a.ExperienceIs(true),
		TargetAreas:       areas,
	}
}

// WaitlistEntry is a stored waitlist record.
type WaitlistEntry struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Role              *string   `json:"role,omitempty"`
	Level             *string   `json:"level,omitempty"`
	InterviewedBefore *bool     `json:"interviewed_before,omitempty"`
	TargetAreas       []string  `json:"target_areas,omitempty"`
	Challenge         *string   `json:"challenge,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// JobTitle is one row of the job-title lookup table.
type JobTitle struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CustomSlug marks the synthetic "use exactly what I typed" suggestion.
const CustomSlug = "custom"

// NormalizeEmail trims and lower-cases an email address before storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
