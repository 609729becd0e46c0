// Package notify sends the team lifecycle emails for the waitlist.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/resend/resend-go/v2"
)

// DefaultTimeout bounds a single fire-and-forget send.
const DefaultTimeout = 10 * time.Second

// EmailSender is the subset of the Resend emails service used here.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend delivers notifications through the Resend HTTP API.
type Resend struct {
	emails EmailSender
	from   string
	to     []string
}

// NewResend creates a notifier using the Resend API key.
func NewResend(apiKey, from string, to []string) *Resend {
	client := resend.NewClient(apiKey)
	return NewResendWithSender(client.Emails, from, to)
}

// NewResendWithSender creates a notifier on an existing sender.
func NewResendWithSender(emails EmailSender, from string, to []string) *Resend {
	return &Resend{emails: emails, from: from, to: to}
}

// NotifySignup implements gateway.Notifier.
func (r *Resend) NotifySignup(ctx context.Context, email string) error {
	html, err := RenderSignup(email)
	if err != nil {
		return err
	}
	return r.send(ctx, SignupSubject, html)
}

// NotifyOnboardingComplete implements gateway.Notifier.
func (r *Resend) NotifyOnboardingComplete(ctx context.Context, email string, snapshot types.WaitlistUpdate) error {
	html, err := RenderOnboarding(email, snapshot)
	if err != nil {
		return err
	}
	return r.send(ctx, OnboardingSubject, html)
}

func (r *Resend) send(ctx context.Context, subject, html string) error {
	if len(r.to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}
	resp, err := r.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      r.to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send %q: %w", subject, err)
	}
	log.Printf("[notify] sent %q (id=%s)", subject, resp.Id)
	return nil
}

// LogNotifier logs notifications instead of sending them. Used when no API key is configured.
type LogNotifier struct{}

// NotifySignup implements gateway.Notifier.
func (LogNotifier) NotifySignup(_ context.Context, email string) error {
	log.Printf("[notify] signup: %s", email)
	return nil
}

// NotifyOnboardingComplete implements gateway.Notifier.
func (LogNotifier) NotifyOnboardingComplete(_ context.Context, email string, s types.WaitlistUpdate) error {
	log.Printf("[notify] onboarding complete: %s role=%q level=%q interviewed=%t areas=%s",
		email, s.Role, s.Level, s.InterviewedBefore, strings.Join(s.TargetAreas, ","))
	return nil
}

// Dispatcher sends notifications in the background. Failures are logged and never
// reach the caller.
type Dispatcher struct {
	notifier gateway.Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher wraps notifier. A non-positive timeout uses DefaultTimeout.
func NewDispatcher(notifier gateway.Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{notifier: notifier, timeout: timeout}
}

// Signup dispatches the signup notification.
func (d *Dispatcher) Signup(email string) {
	d.run("signup", func(ctx context.Context) error {
		return d.notifier.NotifySignup(ctx, email)
	})
}

// OnboardingComplete dispatches the onboarding notification.
func (d *Dispatcher) OnboardingComplete(email string, snapshot types.WaitlistUpdate) {
	d.run("onboarding", func(ctx context.Context) error {
		return d.notifier.NotifyOnboardingComplete(ctx, email, snapshot)
	})
}

func (d *Dispatcher) run(kind string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[notify] %s notification failed: %v", kind, err)
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
