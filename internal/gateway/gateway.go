// Package gateway defines the remote collaborators the funnel consumes: the
// waitlist data store and the notification sender.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// MaxJobTitleResults caps job-title searches.
const MaxJobTitleResults = 8

// DataGateway is the waitlist record store.
type DataGateway interface {
	CreateWaitlistEntry(ctx context.Context, email string) (*types.WaitlistEntry, error)
	UpdateWaitlistEntry(ctx context.Context, id uuid.UUID, update types.WaitlistUpdate) (*types.WaitlistEntry, error)
	SearchJobTitles(ctx context.Context, query string) ([]types.JobTitle, error)
	CountWaitlistEntries(ctx context.Context) (int, error)
}

// Lister is implemented by stores that support the admin export.
type Lister interface {
	ListWaitlistEntries(ctx context.Context, limit, offset int) ([]types.WaitlistEntry, int, error)
}

// TitleSeeder is implemented by stores that can load the job-title table.
type TitleSeeder interface {
	UpsertJobTitles(ctx context.Context, titles []types.JobTitle) (int, error)
}

// Notifier sends lifecycle emails.
type Notifier interface {
	NotifySignup(ctx context.Context, email string) error
	NotifyOnboardingComplete(ctx context.Context, email string, snapshot types.WaitlistUpdate) error
}

// ErrEmailExists is returned when an email is already on the waitlist.
var ErrEmailExists = errors.New("email already on the waitlist")

// ErrEntryNotFound is returned when updating an unknown entry.
var ErrEntryNotFound = errors.New("waitlist entry not found")

// EntryNotFound wraps ErrEntryNotFound with the missing ID.
func EntryNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// CountOrZero returns the entry count, falling back to 0 on failure.
func CountOrZero(ctx context.Context, g DataGateway) int {
	n, err := g.CountWaitlistEntries(ctx)
	if err != nil {
		return 0
	}
	return n
}
