package funnel

import (
	"testing"

	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestStepTable_OrdinalsMatchIndex(t *testing.T) {
	for i, def := range Steps {
		assert.Equal(t, Step(i), def.Step)
		assert.NotNil(t, def.Valid, def.Step.String())
		assert.NotNil(t, def.SkippableWhen, def.Step.String())
		assert.NotNil(t, def.Checkpoint, def.Step.String())
	}
	assert.True(t, Definition(SocialCTA).Terminal)
}

func TestIsStepValid(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name    string
		step    Step
		answers types.AnswerSet
		want    bool
	}{
		{"role empty", RoleEntry, types.AnswerSet{}, false},
		{"role blank", RoleEntry, types.AnswerSet{Role: " \t"}, false},
		{"role set", RoleEntry, types.AnswerSet{Role: "Engineer"}, true},
		{"level empty", LevelSelect, types.AnswerSet{}, false},
		{"level unknown", LevelSelect, types.AnswerSet{Level: "Staff"}, false},
		{"level set", LevelSelect, types.AnswerSet{Level: types.LevelIntern}, true},
		{"experience unset", ExperienceQuery, types.AnswerSet{}, false},
		{"experience false", ExperienceQuery, types.AnswerSet{HasPriorInterviewExperience: &no}, true},
		{"areas empty experienced", TargetAreaSelect, types.AnswerSet{HasPriorInterviewExperience: &yes}, false},
		{"areas empty inexperienced", TargetAreaSelect, types.AnswerSet{HasPriorInterviewExperience: &no}, true},
		{"areas set", TargetAreaSelect, types.AnswerSet{TargetAreas: []string{"Confidence"}}, true},
		{"summary", SummaryReveal, types.AnswerSet{}, true},
		{"cta", SocialCTA, types.AnswerSet{}, true},
		{"out of range", Step(42), types.AnswerSet{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStepValid(tt.step, tt.answers))
		})
	}
}

func TestVisibleSteps(t *testing.T) {
	yes, no := true, false
	assert.Len(t, VisibleSteps(types.AnswerSet{}), 6)
	assert.Len(t, VisibleSteps(types.AnswerSet{HasPriorInterviewExperience: &yes}), 6)
	assert.NotContains(t, VisibleSteps(types.AnswerSet{HasPriorInterviewExperience: &no}), TargetAreaSelect)
}

func TestNextStep(t *testing.T) {
	no := false
	assert.Equal(t, TargetAreaSelect, nextStep(ExperienceQuery, types.AnswerSet{}))
	assert.Equal(t, SummaryReveal, nextStep(ExperienceQuery, types.AnswerSet{HasPriorInterviewExperience: &no}))
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "summary_reveal", SummaryReveal.String())
	assert.Equal(t, "unknown", Step(-1).String())
}
