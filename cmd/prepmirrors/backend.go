package main

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jonathan/prep-mirrors/internal/config"
	"github.com/jonathan/prep-mirrors/internal/db"
	"github.com/jonathan/prep-mirrors/internal/db/sqlite"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/notify"
	"github.com/jonathan/prep-mirrors/internal/types"
)

//go:embed job_titles.txt
var defaultTitles string

// store is what every backend offers the server and the tools.
type store interface {
	gateway.DataGateway
	gateway.Lister
	gateway.TitleSeeder
}

type backend struct {
	name  string
	store store
	close func()
}

// openBackend connects the store selected by cfg. Postgres is migrated only
// when migrate is set; SQLite always applies its embedded migrations; the
// in-memory store is seeded with the default titles.
func openBackend(ctx context.Context, cfg *config.Config, migrate bool) (*backend, error) {
	switch cfg.Backend() {
	case "postgres":
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(ctx); err != nil {
				database.Close()
				return nil, err
			}
		}
		return &backend{name: "postgres", store: database, close: database.Close}, nil

	case "sqlite":
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{name: "sqlite", store: st, close: func() {
			if err := st.Close(); err != nil {
				log.Printf("[sqlite] close: %v", err)
			}
		}}, nil

	default:
		titles, err := readTitles(strings.NewReader(defaultTitles))
		if err != nil {
			return nil, err
		}
		return &backend{name: "memory", store: gateway.NewMemory(titles...), close: func() {}}, nil
	}
}

// buildNotifier sends through Resend when an API key is configured and logs otherwise.
func buildNotifier(cfg *config.Config) gateway.Notifier {
	if cfg.ResendAPIKey == "" {
		log.Printf("[notify] RESEND_API_KEY not set, notifications are logged only")
		return notify.LogNotifier{}
	}
	return notify.NewResend(cfg.ResendAPIKey, cfg.NotifyFrom, cfg.NotifyTo)
}

// readTitles parses one title per line, skipping blanks and # comments.
// Titles that slug to the same value are kept once.
func readTitles(r io.Reader) ([]types.JobTitle, error) {
	var titles []types.JobTitle
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		slug := types.Slugify(name)
		if slug == "" {
			return nil, fmt.Errorf("line %d: title %q has no usable characters", line, name)
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		titles = append(titles, types.JobTitle{Name: name, Slug: slug})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	return titles, nil
}
