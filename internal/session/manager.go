package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/types"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidEmail is returned when signup is attempted with a blank email.
	ErrInvalidEmail = errors.New("email is required")
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = time.Hour

// Manager owns every live session and expires idle ones.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a manager. A non-positive ttl uses DefaultTTL.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Signup creates the waitlist entry, dispatches the signup notification and
// opens a funnel session for it. A duplicate email is returned as
// gateway.ErrEmailExists; any other store failure as a funnel.RemoteError.
func (m *Manager) Signup(ctx context.Context, email string) (*types.WaitlistEntry, *Session, error) {
	email = types.NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrInvalidEmail
	}

	entry, err := m.deps.Gateway.CreateWaitlistEntry(ctx, email)
	if err != nil {
		if errors.Is(err, gateway.ErrEmailExists) {
			return nil, nil, err
		}
		return nil, nil, &funnel.RemoteError{Op: "create waitlist entry", Err: err}
	}

	if m.deps.Notifier != nil {
		m.deps.Notifier.Signup(entry.Email)
	}

	s := m.Open(*entry)
	log.Printf("[funnel] signup %s opened session %s", maskEmail(entry.Email), s.ID)
	return entry, s, nil
}

// Open starts a session for an existing entry.
func (m *Manager) Open(entry types.WaitlistEntry) *Session {
	s := New(uuid.New(), entry, m.deps)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Get returns a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Dismiss stops a session and forgets it.
func (m *Manager) Dismiss(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Dismiss()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep dismisses sessions idle since before now-ttl and returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Dismiss()
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is cancelled, then dismisses the rest.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.ttl / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				log.Printf("[funnel] expired %d idle sessions", n)
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Dismiss()
	}
}

// maskEmail keeps logs free of full addresses: "jane@example.com" -> "j***@example.com".
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
