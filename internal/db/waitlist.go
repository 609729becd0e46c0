package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const waitlistColumns = `id, email, role, level, interviewed_before, target_areas, challenge, created_at, updated_at`

func scanEntry(row pgx.Row) (*types.WaitlistEntry, error) {
	var e types.WaitlistEntry
	err := row.Scan(&e.ID, &e.Email, &e.Role, &e.Level, &e.InterviewedBefore, &e.TargetAreas, &e.Challenge, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateWaitlistEntry inserts a new entry for email and returns it
func (db *DB) CreateWaitlistEntry(ctx context.Context, email string) (*types.WaitlistEntry, error) {
	entry, err := scanEntry(db.pool.QueryRow(ctx,
		`INSERT INTO waitlist (email) VALUES ($1) RETURNING `+waitlistColumns,
		types.NormalizeEmail(email),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, gateway.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return entry, nil
}

// UpdateWaitlistEntry writes the onboarding answers to an entry
func (db *DB) UpdateWaitlistEntry(ctx context.Context, id uuid.UUID, u types.WaitlistUpdate) (*types.WaitlistEntry, error) {
	entry, err := scanEntry(db.pool.QueryRow(ctx,
		`UPDATE waitlist
		 SET role = $2, level = $3, interviewed_before = $4, target_areas = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+waitlistColumns,
		id, u.Role, u.Level, u.InterviewedBefore, u.TargetAreas,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, gateway.EntryNotFound(id)
		}
		return nil, fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	return entry, nil
}

// CountWaitlistEntries returns the number of waitlist entries
func (db *DB) CountWaitlistEntries(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count waitlist entries: %w", err)
	}
	return n, nil
}

// ListWaitlistEntries returns a page of entries, newest first, and the total count
func (db *DB) ListWaitlistEntries(ctx context.Context, limit, offset int) ([]types.WaitlistEntry, int, error) {
	total, err := db.CountWaitlistEntries(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	defer rows.Close()

	entries := []types.WaitlistEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}
