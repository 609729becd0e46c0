package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/notify"
	"github.com/jonathan/prep-mirrors/internal/server"
	"github.com/jonathan/prep-mirrors/internal/server/ratelimit"
	"github.com/jonathan/prep-mirrors/internal/session"
	"github.com/jonathan/prep-mirrors/internal/suggest"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveAutoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that captures waitlist sign-ups and runs onboarding funnel sessions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT and the config file)")
	serveCmd.Flags().BoolVar(&serveAutoMigrate, "migrate", false, "Apply Postgres migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}

	be, err := openBackend(context.Background(), cfg, serveAutoMigrate)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend(), err)
	}
	defer be.close()
	log.Printf("Using %s store", be.name)

	dispatcher := notify.NewDispatcher(buildNotifier(cfg), cfg.NotifyTimeout)
	defer dispatcher.Wait()

	manager := session.NewManager(session.Deps{
		Gateway:  be.store,
		Searcher: suggest.NewCoalescing(be.store, 0),
		Notifier: dispatcher,
		Reveal:   funnel.RevealConfig{CharDelay: cfg.RevealCharDelay, Dwell: cfg.RevealDwell},
		Debounce: cfg.LookupDebounce,
	}, cfg.SessionTTL)

	if !passwordConfig.AdminEnabled() {
		log.Printf("ADMIN_PASSWORD_HASH not set, admin export disabled")
	}

	srv, err := server.New(server.Options{
		Config:   cfg,
		Gateway:  be.store,
		Lister:   be.store,
		Sessions: manager,
		JWT:      server.NewJWTService(jwtConfig),
		Admin:    passwordConfig,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
