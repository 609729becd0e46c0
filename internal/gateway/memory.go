package gateway

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// Memory is an in-process DataGateway used by the simulator and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*types.WaitlistEntry
	byEmail map[string]uuid.UUID
	titles  []types.JobTitle
	updates int
}

// NewMemory creates an empty store seeded with titles.
func NewMemory(titles ...types.JobTitle) *Memory {
	m := &Memory{
		entries: make(map[uuid.UUID]*types.WaitlistEntry),
		byEmail: make(map[string]uuid.UUID),
	}
	_, _ = m.UpsertJobTitles(context.Background(), titles)
	return m
}

// CreateWaitlistEntry implements DataGateway.
func (m *Memory) CreateWaitlistEntry(_ context.Context, email string) (*types.WaitlistEntry, error) {
	email = types.NormalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[email]; ok {
		return nil, ErrEmailExists
	}
	now := time.Now().UTC()
	e := &types.WaitlistEntry{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
	m.entries[e.ID] = e
	m.byEmail[email] = e.ID
	out := *e
	return &out, nil
}

// UpdateWaitlistEntry implements DataGateway.
func (m *Memory) UpdateWaitlistEntry(_ context.Context, id uuid.UUID, u types.WaitlistUpdate) (*types.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, EntryNotFound(id)
	}
	role, level, interviewed := u.Role, u.Level, u.InterviewedBefore
	e.Role = &role
	e.Level = &level
	e.InterviewedBefore = &interviewed
	e.TargetAreas = slices.Clone(u.TargetAreas)
	e.UpdatedAt = time.Now().UTC()
	m.updates++
	out := *e
	return &out, nil
}

// SearchJobTitles implements DataGateway with a case-insensitive substring match.
func (m *Memory) SearchJobTitles(_ context.Context, query string) ([]types.JobTitle, error) {
	if utf8.RuneCountInString(query) < 2 {
		return []types.JobTitle{}, nil
	}
	needle := strings.ToLower(query)

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.JobTitle{}
	for _, t := range m.titles {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			out = append(out, t)
			if len(out) == MaxJobTitleResults {
				break
			}
		}
	}
	return out, nil
}

// CountWaitlistEntries implements DataGateway.
func (m *Memory) CountWaitlistEntries(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// ListWaitlistEntries implements Lister, newest first.
func (m *Memory) ListWaitlistEntries(_ context.Context, limit, offset int) ([]types.WaitlistEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]types.WaitlistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []types.WaitlistEntry{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

// UpsertJobTitles implements TitleSeeder, keyed by slug.
func (m *Memory) UpsertJobTitles(_ context.Context, titles []types.JobTitle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range titles {
		if t.Slug == "" {
			t.Slug = types.Slugify(t.Name)
		}
		if i := slices.IndexFunc(m.titles, func(x types.JobTitle) bool { return x.Slug == t.Slug }); i >= 0 {
			m.titles[i] = t
		} else {
			m.titles = append(m.titles, t)
		}
		n++
	}
	sort.SliceStable(m.titles, func(i, j int) bool { return m.titles[i].Name < m.titles[j].Name })
	return n, nil
}

// Updates returns how many checkpoint writes the store has received.
func (m *Memory) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}
