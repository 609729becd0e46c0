package main

import (
	"fmt"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  "Applies the embedded migrations to the Postgres database at DATABASE_URL or the SQLite file at SQLITE_PATH.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Backend() == "memory" {
		return fmt.Errorf("nothing to migrate: set DATABASE_URL or SQLITE_PATH")
	}

	be, err := openBackend(cmd.Context(), cfg, true)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer be.close()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s store\n", be.name)
	return nil
}
