package funnel

import (
	"fmt"
	"strings"

	"github.com/jonathan/prep-mirrors/internal/types"
)

const (
	summaryIntro   = "Based on your goal to become a %s %s, Prep Mirrors will generate realistic mock interview scenarios tailored to your experience."
	summaryFocus   = "Since you want to focus on %s, our AI will specifically analyze your performance in these areas."
	summaryClosing = "Just relax, we're building the perfect practice environment for you."
)

// ComposeSummary renders the personalized summary paragraph. The focus clause
// is omitted when no target areas were selected.
func ComposeSummary(role string, level types.Level, targetAreas []string) string {
	parts := []string{fmt.Sprintf(summaryIntro, level, role)}
	if len(targetAreas) > 0 {
		parts = append(parts, fmt.Sprintf(summaryFocus, strings.Join(targetAreas, ", ")))
	}
	parts = append(parts, summaryClosing)
	return strings.Join(parts, "\n\n")
}
