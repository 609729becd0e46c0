// Package observability provides formatted output of funnel state for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/prep-mirrors/internal/session"
	"github.com/jonathan/prep-mirrors/internal/suggest"
	"github.com/jonathan/prep-mirrors/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// innerWidth is the printable width inside a box
	innerWidth = boxWidth - 4
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, innerWidth)))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintView outputs one funnel state.
func (p *Printer) PrintView(v session.View) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Step:       %s (%d/%d)\n", v.Step, v.Progress.Position+1, v.Progress.Total))
	sb.WriteString(fmt.Sprintf("Role:       %s\n", orDash(v.Answers.Role)))
	if v.RoleInput != "" && v.RoleInput != v.Answers.Role {
		sb.WriteString(fmt.Sprintf("Typing:     %s\n", v.RoleInput))
	}
	sb.WriteString(fmt.Sprintf("Level:      %s\n", orDash(string(v.Answers.Level))))
	sb.WriteString(fmt.Sprintf("Experience: %s\n", experience(v.Answers.HasPriorInterviewExperience)))
	if len(v.Answers.TargetAreas) > 0 {
		sb.WriteString(fmt.Sprintf("Focus:      %s\n", strings.Join(v.Answers.TargetAreas, ", ")))
	}

	nav := []string{}
	if v.CanRetreat {
		nav = append(nav, "← back")
	}
	if v.CanAdvance {
		nav = append(nav, "continue →")
	}
	if len(nav) > 0 {
		sb.WriteString(fmt.Sprintf("Actions:    %s\n", strings.Join(nav, "  ")))
	}

	checkpoint := string(v.Checkpoint)
	if v.CheckpointError != "" {
		checkpoint += " (" + v.CheckpointError + ")"
	}
	sb.WriteString(fmt.Sprintf("Checkpoint: %s", checkpoint))

	if v.Summary != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(wrap(v.Summary, innerWidth), "\n"))
		if !v.SummaryComplete {
			sb.WriteString("▌")
		}
	}

	p.printBox("FUNNEL · "+strings.ToUpper(strings.ReplaceAll(v.Step, "_", " ")), sb.String())
}

// PrintSuggestions outputs the role suggestion dropdown.
func (p *Printer) PrintSuggestions(v suggest.View) {
	if len(v.Items) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(v.Items), maxItemsToShow+1)
	for i := 0; i < count; i++ {
		item := v.Items[i]
		marker := "  "
		if i == v.Selected {
			marker = "▸ "
		}
		name := item.Name
		if item.Custom {
			name = fmt.Sprintf("Use %q", item.Name)
		}
		sb.WriteString(marker + name)
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(v.Items) > count {
		sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(v.Items)-count))
	}
	if v.Pending {
		sb.WriteString("\n  (searching...)")
	}

	p.printBox(fmt.Sprintf("SUGGESTIONS FOR %q", v.Query), sb.String())
}

// PrintEntry outputs a stored waitlist record.
func (p *Printer) PrintEntry(e *types.WaitlistEntry) {
	if e == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:          %s\n", e.ID))
	sb.WriteString(fmt.Sprintf("Email:       %s\n", e.Email))
	sb.WriteString(fmt.Sprintf("Role:        %s\n", orDash(deref(e.Role))))
	sb.WriteString(fmt.Sprintf("Level:       %s\n", orDash(deref(e.Level))))
	sb.WriteString(fmt.Sprintf("Interviewed: %s\n", experience(e.InterviewedBefore)))
	if len(e.TargetAreas) > 0 {
		sb.WriteString(fmt.Sprintf("Focus:       %s\n", strings.Join(e.TargetAreas, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Updated:     %s", e.UpdatedAt.Format("2006-01-02 15:04:05")))

	p.printBox("WAITLIST ENTRY", sb.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func experience(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

// pad right-fills s with spaces to innerWidth runes.
func pad(s string) string {
	if n := utf8.RuneCountInString(s); n < innerWidth {
		return s + strings.Repeat(" ", innerWidth-n)
	}
	return s
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

// wrap breaks text on spaces into lines of at most width runes, keeping blank lines.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}
