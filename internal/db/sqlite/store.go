// Package sqlite provides a single-file SQLite store for local development and demos.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/db"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store provides SQLite-backed persistence for waitlist entries and job titles.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := store.refoldTitles(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// foldName is the case folding shared with the Postgres ILIKE and in-memory
// searches. SQLite's lower() only folds ASCII, so folding happens here.
func foldName(name string) string {
	return strings.ToLower(name)
}

// refoldTitles rewrites name_folded for rows folded by SQL lower().
func (s *Store) refoldTitles(ctx context.Context) error {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, name_folded FROM job_titles`)
	if err != nil {
		return fmt.Errorf("read job titles for folding: %w", err)
	}
	type refold struct {
		id     int64
		folded string
	}
	var stale []refold
	for rows.Next() {
		var (
			id           int64
			name, folded string
		)
		if err := rows.Scan(&id, &name, &folded); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan job title for folding: %w", err)
		}
		if want := foldName(name); want != folded {
			stale = append(stale, refold{id: id, folded: want})
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close job titles: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read job titles for folding: %w", err)
	}

	for _, r := range stale {
		if _, err := s.sqlDB.ExecContext(ctx, `UPDATE job_titles SET name_folded = ? WHERE id = ?`, r.folded, r.id); err != nil {
			return fmt.Errorf("refold job title %d: %w", r.id, err)
		}
	}
	return nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// runMigrations applies embedded SQL migrations in filename order, at most once per file.
func (s *Store) runMigrations() error {
	if _, err := s.sqlDB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

const waitlistColumns = `id, email, role, level, interviewed_before, target_areas, challenge, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*types.WaitlistEntry, error) {
	var (
		e           types.WaitlistEntry
		id          string
		interviewed sql.NullInt64
		areas       sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&id, &e.Email, &e.Role, &e.Level, &interviewed, &areas, &e.Challenge, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse entry id: %w", err)
	}
	e.ID = parsed
	if interviewed.Valid {
		v := interviewed.Int64 != 0
		e.InterviewedBefore = &v
	}
	if areas.Valid && areas.String != "" {
		if err := json.Unmarshal([]byte(areas.String), &e.TargetAreas); err != nil {
			return nil, fmt.Errorf("decode target areas: %w", err)
		}
	}
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return &e, nil
}

// CreateWaitlistEntry implements gateway.DataGateway.
func (s *Store) CreateWaitlistEntry(ctx context.Context, email string) (*types.WaitlistEntry, error) {
	now := toMillis(time.Now())
	entry, err := scanEntry(s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO waitlist (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)
		 RETURNING `+waitlistColumns,
		uuid.NewString(), types.NormalizeEmail(email), now, now,
	))
	if err != nil {
		if isConstraintError(err) {
			return nil, gateway.ErrEmailExists
		}
		return nil, fmt.Errorf("create waitlist entry: %w", err)
	}
	return entry, nil
}

// UpdateWaitlistEntry implements gateway.DataGateway.
func (s *Store) UpdateWaitlistEntry(ctx context.Context, id uuid.UUID, u types.WaitlistUpdate) (*types.WaitlistEntry, error) {
	areas := u.TargetAreas
	if areas == nil {
		areas = []string{}
	}
	areasJSON, err := json.Marshal(areas)
	if err != nil {
		return nil, fmt.Errorf("encode target areas: %w", err)
	}

	entry, err := scanEntry(s.sqlDB.QueryRowContext(ctx,
		`UPDATE waitlist
		 SET role = ?, level = ?, interviewed_before = ?, target_areas = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+waitlistColumns,
		u.Role, u.Level, boolToInt(u.InterviewedBefore), string(areasJSON), toMillis(time.Now()), id.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gateway.EntryNotFound(id)
		}
		return nil, fmt.Errorf("update waitlist entry: %w", err)
	}
	return entry, nil
}

// CountWaitlistEntries implements gateway.DataGateway.
func (s *Store) CountWaitlistEntries(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count waitlist entries: %w", err)
	}
	return n, nil
}

// ListWaitlistEntries implements gateway.Lister.
func (s *Store) ListWaitlistEntries(ctx context.Context, limit, offset int) ([]types.WaitlistEntry, int, error) {
	total, err := s.CountWaitlistEntries(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list waitlist entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []types.WaitlistEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// SearchJobTitles implements gateway.DataGateway.
func (s *Store) SearchJobTitles(ctx context.Context, query string) ([]types.JobTitle, error) {
	if utf8.RuneCountInString(query) < 2 {
		return []types.JobTitle{}, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, slug FROM job_titles
		 WHERE name_folded LIKE ? ESCAPE '\'
		 ORDER BY name COLLATE NOCASE
		 LIMIT ?`,
		db.LikePattern(foldName(query)), gateway.MaxJobTitleResults,
	)
	if err != nil {
		return nil, fmt.Errorf("search job titles: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	titles := []types.JobTitle{}
	for rows.Next() {
		var t types.JobTitle
		if err := rows.Scan(&t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan job title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// UpsertJobTitles implements gateway.TitleSeeder inside one transaction.
func (s *Store) UpsertJobTitles(ctx context.Context, titles []types.JobTitle) (int, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO job_titles (name, slug, name_folded) VALUES (?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET name = excluded.name, name_folded = excluded.name_folded`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, t := range titles {
		slug := t.Slug
		if slug == "" {
			slug = types.Slugify(t.Name)
		}
		if _, err := stmt.ExecContext(ctx, t.Name, slug, foldName(t.Name)); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert job title %q: %w", t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(titles), nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
