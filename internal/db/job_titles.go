package db

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern builds a case-insensitive substring pattern with LIKE wildcards escaped.
func LikePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// SearchJobTitles returns up to eight job titles containing query, case-insensitively
func (db *DB) SearchJobTitles(ctx context.Context, query string) ([]types.JobTitle, error) {
	if utf8.RuneCountInString(query) < 2 {
		return []types.JobTitle{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT name, slug FROM job_titles WHERE name ILIKE $1 ORDER BY name LIMIT $2`,
		LikePattern(query), gateway.MaxJobTitleResults,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search job titles: %w", err)
	}
	defer rows.Close()

	titles := []types.JobTitle{}
	for rows.Next() {
		var t types.JobTitle
		if err := rows.Scan(&t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan job title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// UpsertJobTitles inserts or renames job titles keyed by slug in a single batch
func (db *DB) UpsertJobTitles(ctx context.Context, titles []types.JobTitle) (int, error) {
	batch := &pgx.Batch{}
	for _, t := range titles {
		slug := t.Slug
		if slug == "" {
			slug = types.Slugify(t.Name)
		}
		batch.Queue(
			`INSERT INTO job_titles (name, slug) VALUES ($1, $2)
			 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name`,
			t.Name, slug,
		)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range titles {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert job title %q: %w", titles[i].Name, err)
		}
	}
	return len(titles), nil
}
