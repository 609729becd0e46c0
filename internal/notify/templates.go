package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jonathan/prep-mirrors/internal/types"
)

const footer = `<p style="font-size: 12px; color: #666; margin-top: 20px;">Sent automatically from Prep Mirrors Landing Page.</p>`

var signupTmpl = template.Must(template.New("signup").Parse(`<div style="font-family: sans-serif; padding: 20px; color: #333;">
<h2 style="color: #6366f1;">New User Joined!</h2>
<p>A new user has just signed up for the Prep Mirrors waitlist.</p>
<div class="details" style="background: #f3f4f6; padding: 15px; border-radius: 8px; margin-top: 10px;">
<strong>Email:</strong> <span class="email">{{.Email}}</span>
</div>
` + footer + `
</div>`))

var onboardingTmpl = template.Must(template.New("onboarding").Funcs(template.FuncMap{
	"orNA": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	},
	"yesNo": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
	"areas": func(a []string) string {
		if len(a) == 0 {
			return "None"
		}
		return strings.Join(a, ", ")
	},
}).Parse(`<div style="font-family: sans-serif; padding: 20px; color: #333;">
<h2 style="color: #10b981;">Onboarding Completed!</h2>
<p>A user has finished their diagnostic profile.</p>
<div class="details" style="background: #f3f4f6; padding: 15px; border-radius: 8px; margin: 10px 0;">
<p><strong>Email:</strong> <span class="email">{{.Email}}</span></p>
<p><strong>Role:</strong> <span class="role">{{orNA .Snapshot.Role}}</span></p>
<p><strong>Level:</strong> <span class="level">{{orNA .Snapshot.Level}}</span></p>
<p><strong>Interview Experience:</strong> <span class="experience">{{yesNo .Snapshot.InterviewedBefore}}</span></p>
<p><strong>Target Areas:</strong> <span class="areas">{{areas .Snapshot.TargetAreas}}</span></p>
</div>
` + footer + `
</div>`))

// Email subjects.
const (
	SignupSubject     = "🚀 New Waitlist Sign-up!"
	OnboardingSubject = "🎯 Onboarding Completed!"
)

// RenderSignup renders the team notification for a new waitlist signup.
func RenderSignup(email string) (string, error) {
	var buf bytes.Buffer
	if err := signupTmpl.Execute(&buf, struct{ Email string }{email}); err != nil {
		return "", fmt.Errorf("failed to render signup email: %w", err)
	}
	return buf.String(), nil
}

// RenderOnboarding renders the team notification for a completed funnel.
func RenderOnboarding(email string, snapshot types.WaitlistUpdate) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Email    string
		Snapshot types.WaitlistUpdate
	}{email, snapshot}
	if err := onboardingTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render onboarding email: %w", err)
	}
	return buf.String(), nil
}
