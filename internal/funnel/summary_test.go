package funnel

import (
	"strings"
	"testing"

	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestComposeSummary_WithoutTargetAreas(t *testing.T) {
	text := ComposeSummary("Engineer", types.LevelSenior, nil)

	assert.True(t, strings.HasPrefix(text, "Based on your goal to become a Senior Engineer,"))
	assert.NotContains(t, text, "Since you want to focus on")
	assert.True(t, strings.HasSuffix(text, "perfect practice environment for you."))
	assert.Equal(t, 2, len(strings.Split(text, "\n\n")))
}

func TestComposeSummary_WithTargetArea(t *testing.T) {
	text := ComposeSummary("Engineer", types.LevelSenior, []string{"Confidence"})

	assert.Equal(t, 1, strings.Count(text, "Since you want to focus on"))
	assert.Contains(t, text, "Since you want to focus on Confidence, our AI")
	assert.Equal(t, 3, len(strings.Split(text, "\n\n")))
}

func TestComposeSummary_JoinsAreasInOrder(t *testing.T) {
	text := ComposeSummary("Designer", types.LevelJunior, []string{"STAR Method", "Body Language"})
	assert.Contains(t, text, "focus on STAR Method, Body Language,")
}

func TestComposeSummary_Deterministic(t *testing.T) {
	a := ComposeSummary("PM", types.LevelLead, []string{"Communication"})
	b := ComposeSummary("PM", types.LevelLead, []string{"Communication"})
	assert.Equal(t, a, b)
}
