package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/spf13/cobra"
)

var seedTitlesFile string

var seedTitlesCmd = &cobra.Command{
	Use:   "seed-titles",
	Short: "Load job titles for the role lookup",
	Long:  "Reads job titles (one per line, # for comments) and upserts them by slug. Without --file the built-in catalog is loaded.",
	RunE:  runSeedTitles,
}

func init() {
	seedTitlesCmd.Flags().StringVarP(&seedTitlesFile, "file", "f", "", "Path to a titles file (- for stdin)")
	rootCmd.AddCommand(seedTitlesCmd)
}

func runSeedTitles(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Backend() == "memory" {
		return fmt.Errorf("no store to seed: set DATABASE_URL or SQLITE_PATH")
	}

	var src io.Reader = strings.NewReader(defaultTitles)
	switch seedTitlesFile {
	case "":
	case "-":
		src = cmd.InOrStdin()
	default:
		f, err := os.Open(seedTitlesFile)
		if err != nil {
			return fmt.Errorf("failed to open titles file: %w", err)
		}
		defer f.Close()
		src = f
	}

	titles, err := readTitles(src)
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		return fmt.Errorf("no titles found")
	}

	be, err := openBackend(cmd.Context(), cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend(), err)
	}
	defer be.close()

	n, err := be.store.UpsertJobTitles(cmd.Context(), titles)
	if err != nil {
		return fmt.Errorf("failed to seed titles: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d job titles into %s store\n", n, be.name)
	return nil
}
