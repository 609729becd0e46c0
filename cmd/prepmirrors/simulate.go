package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/notify"
	"github.com/jonathan/prep-mirrors/internal/observability"
	"github.com/jonathan/prep-mirrors/internal/session"
	"github.com/jonathan/prep-mirrors/internal/suggest"
	"github.com/jonathan/prep-mirrors/internal/types"
	"github.com/spf13/cobra"
)

// simulateOptions describes one scripted funnel run.
type simulateOptions struct {
	Email       string
	Role        string
	Level       types.Level
	Experienced bool
	Areas       []string
	Reveal      funnel.RevealConfig
	Debounce    time.Duration
}

var (
	simEmail      string
	simRole       string
	simLevel      string
	simExperience bool
	simAreas      []string
	simRealtime   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Walk one visitor through the onboarding funnel",
	Long:  "Drives a funnel session from flags against the configured store (in-memory when none is set) and prints every state.",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simEmail, "email", "", "Sign-up email (default: a generated address)")
	simulateCmd.Flags().StringVar(&simRole, "role", "Software Engineer", "Role to type and confirm")
	simulateCmd.Flags().StringVar(&simLevel, "level", string(types.LevelMid), "Target level: Intern, Junior, Mid-level, Senior or Lead")
	simulateCmd.Flags().BoolVar(&simExperience, "experienced", true, "Whether the visitor has interviewed before")
	simulateCmd.Flags().StringSliceVar(&simAreas, "areas", []string{"Communication"}, "Improvement areas (experienced visitors only)")
	simulateCmd.Flags().BoolVar(&simRealtime, "realtime", false, "Reveal the summary at the configured typing speed")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level, err := types.ParseLevel(simLevel)
	if err != nil {
		return err
	}
	for _, area := range simAreas {
		if !types.IsKnownTargetArea(area) {
			return fmt.Errorf("unknown target area %q (choose from: %s)", area, strings.Join(types.TargetAreas, ", "))
		}
	}

	email := simEmail
	if email == "" {
		email = fmt.Sprintf("sim-%d@example.com", time.Now().UnixNano())
	}
	opts := simulateOptions{
		Email:       email,
		Role:        simRole,
		Level:       level,
		Experienced: simExperience,
		Areas:       simAreas,
		Reveal:      funnel.RevealConfig{Dwell: 10 * time.Millisecond},
		Debounce:    10 * time.Millisecond,
	}
	if simRealtime {
		opts.Reveal = funnel.RevealConfig{CharDelay: cfg.RevealCharDelay, Dwell: cfg.RevealDwell}
		opts.Debounce = cfg.LookupDebounce
	}

	be, err := openBackend(cmd.Context(), cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend(), err)
	}
	defer be.close()

	dispatcher := notify.NewDispatcher(notify.LogNotifier{}, cfg.NotifyTimeout)
	defer dispatcher.Wait()

	return simulate(cmd.Context(), cmd.OutOrStdout(), be.store, dispatcher, opts)
}

// simulate runs the scripted funnel against st, printing each state to out.
func simulate(ctx context.Context, out io.Writer, st store, notifier session.Notifier, opts simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	printer := observability.NewPrinter(out)
	manager := session.NewManager(session.Deps{
		Gateway:  st,
		Searcher: suggest.NewCoalescing(st, 0),
		Notifier: notifier,
		Reveal:   opts.Reveal,
		Debounce: opts.Debounce,
	}, 0)

	_, sess, err := manager.Signup(ctx, opts.Email)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	defer func() { _ = manager.Dismiss(sess.ID) }()
	printer.PrintView(sess.View())

	// Role: type, wait for the lookup, then pick a catalog match or the typed text.
	if _, err := sess.SetRoleQuery(opts.Role); err != nil {
		return err
	}
	suggestions, err := awaitSuggestions(ctx, sess, opts.Debounce)
	if err != nil {
		return err
	}
	printer.PrintSuggestions(suggestions)

	pick := 0
	for i, item := range suggestions.Items {
		if !item.Custom && strings.EqualFold(item.Name, opts.Role) {
			pick = i
			break
		}
	}
	if _, err := sess.SelectRole(pick); err != nil {
		return fmt.Errorf("failed to confirm role: %w", err)
	}
	if err := advance(sess, printer); err != nil {
		return err
	}

	if _, err := sess.UpdateAnswers(funnel.Patch{Level: &opts.Level}); err != nil {
		return err
	}
	if err := advance(sess, printer); err != nil {
		return err
	}

	experienced := opts.Experienced
	if _, err := sess.UpdateAnswers(funnel.Patch{HasPriorInterviewExperience: &experienced}); err != nil {
		return err
	}
	if err := advance(sess, printer); err != nil {
		return err
	}

	if experienced {
		for _, area := range opts.Areas {
			if _, err := sess.ToggleTargetArea(area); err != nil {
				return err
			}
		}
		if err := advance(sess, printer); err != nil {
			return err
		}
	}

	if err := awaitReveal(ctx, sess); err != nil {
		return err
	}
	sess.Wait()
	final := sess.View()
	printer.PrintView(final)

	if final.Checkpoint != funnel.CheckpointSaved {
		return fmt.Errorf("checkpoint %s: %s", final.Checkpoint, final.CheckpointError)
	}

	entries, _, err := st.ListWaitlistEntries(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to read back entry: %w", err)
	}
	if len(entries) > 0 {
		printer.PrintEntry(&entries[0])
	}
	return nil
}

func advance(sess *session.Session, printer *observability.Printer) error {
	view, err := sess.Advance()
	if err != nil {
		return fmt.Errorf("advance from %s failed: %w", view.Step, err)
	}
	printer.PrintView(view)
	return nil
}

// awaitSuggestions polls until the debounced lookup has settled.
func awaitSuggestions(ctx context.Context, sess *session.Session, debounce time.Duration) (suggest.View, error) {
	deadline := time.Now().Add(debounce + 5*time.Second)
	settleAfter := time.Now().Add(debounce)
	for {
		v, err := sess.Suggestions()
		if err != nil {
			return suggest.View{}, err
		}
		if v.Open || (!v.Pending && time.Now().After(settleAfter.Add(50*time.Millisecond))) || time.Now().After(deadline) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return suggest.View{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// awaitReveal follows the summary reveal until it completes.
func awaitReveal(ctx context.Context, sess *session.Session) error {
	_, events, unsubscribe, err := sess.Subscribe()
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				if !sess.View().SummaryComplete {
					return fmt.Errorf("summary reveal did not finish")
				}
				return nil
			}
		}
	}
}
