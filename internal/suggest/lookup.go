// Package suggest implements the debounced, staleness-aware job-title
// autocomplete behind the role-entry step.
package suggest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonathan/prep-mirrors/internal/types"
)

const (
	// DefaultDebounce is the quiescence window before a lookup is issued.
	DefaultDebounce = 300 * time.Millisecond
	// MinQueryLength is the shortest query that triggers a lookup.
	MinQueryLength = 2
)

// ErrNoSelection is returned when confirming without a highlighted entry.
var ErrNoSelection = errors.New("no suggestion selected")

// Searcher looks up job titles matching a query.
type Searcher interface {
	SearchJobTitles(ctx context.Context, query string) ([]types.JobTitle, error)
}

// Suggestion is one entry of the combined list.
type Suggestion struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Custom bool   `json:"custom,omitempty"`
}

// View is a snapshot of the suggestion list for rendering.
type View struct {
	Query    string       `json:"query"`
	Open     bool         `json:"open"`
	Pending  bool         `json:"pending"`
	Selected int          `json:"selected"`
	Items    []Suggestion `json:"items"`
}

// Lookup owns the suggestion list of one role field. Every scheduled lookup
// takes a sequence number; completions that are not the latest are dropped.
type Lookup struct {
	searcher Searcher
	debounce time.Duration
	ctx      context.Context

	mu       sync.Mutex
	query    string
	results  []types.JobTitle
	open     bool
	pending  bool
	selected int
	seq      uint64
	timer    *time.Timer
	inFlight context.CancelFunc
	issued   int
	closed   bool
}

// NewLookup creates a Lookup whose lookups live no longer than ctx.
func NewLookup(ctx context.Context, searcher Searcher, debounce time.Duration) *Lookup {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Lookup{
		searcher: searcher,
		debounce: debounce,
		ctx:      ctx,
		selected: -1,
	}
}

// SetQuery records a keystroke. Short queries clear and close the list
// immediately; longer ones schedule a lookup after the debounce window.
func (l *Lookup) SetQuery(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.query = text
	l.selected = -1
	l.supersedeLocked()

	if utf8.RuneCountInString(text) < MinQueryLength {
		l.results = nil
		l.open = false
		l.pending = false
		return
	}

	seq := l.seq
	l.timer = time.AfterFunc(l.debounce, func() { l.fire(seq, text) })
}

// supersedeLocked invalidates any scheduled or in-flight lookup.
func (l *Lookup) supersedeLocked() {
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.inFlight != nil {
		l.inFlight()
		l.inFlight = nil
	}
}

func (l *Lookup) fire(seq uint64, query string) {
	l.mu.Lock()
	if l.closed || seq != l.seq {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(l.ctx)
	l.inFlight = cancel
	l.pending = true
	l.issued++
	l.mu.Unlock()

	results, err := l.searcher.SearchJobTitles(ctx, query)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || seq != l.seq {
		return
	}
	l.inFlight = nil
	l.pending = false
	if err != nil {
		log.Printf("[suggest] lookup %q failed: %v", query, err)
		l.results = nil
		l.open = false
		return
	}
	l.results = results
	l.open = len(results) > 0
}

// itemsLocked prepends the typed text as a custom entry to the latest results.
func (l *Lookup) itemsLocked() []Suggestion {
	if utf8.RuneCountInString(l.query) < MinQueryLength {
		return nil
	}
	items := make([]Suggestion, 0, len(l.results)+1)
	items = append(items, Suggestion{Name: l.query, Slug: types.CustomSlug, Custom: true})
	for _, r := range l.results {
		items = append(items, Suggestion{Name: r.Name, Slug: r.Slug})
	}
	return items
}

// View returns the current list state.
func (l *Lookup) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := l.itemsLocked()
	if items == nil {
		items = []Suggestion{}
	}
	return View{
		Query:    l.query,
		Open:     l.open,
		Pending:  l.pending,
		Selected: l.selected,
		Items:    items,
	}
}

// Next highlights the following entry, stopping at the last one.
func (l *Lookup) Next() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.itemsLocked()); l.selected < n-1 {
		l.selected++
	}
}

// Prev highlights the preceding entry, stopping at the first one.
func (l *Lookup) Prev() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected > 0 {
		l.selected--
	}
}

// Confirm selects the highlighted entry.
func (l *Lookup) Confirm() (Suggestion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selectLocked(l.selected)
}

// Select picks the entry at index i, closes the list and returns it.
func (l *Lookup) Select(i int) (Suggestion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selectLocked(i)
}

func (l *Lookup) selectLocked(i int) (Suggestion, error) {
	items := l.itemsLocked()
	if i < 0 || i >= len(items) {
		return Suggestion{}, ErrNoSelection
	}
	chosen := items[i]
	l.supersedeLocked()
	l.query = chosen.Name
	l.open = false
	l.pending = false
	l.selected = -1
	return chosen, nil
}

// Issued returns how many lookups have been sent to the searcher.
func (l *Lookup) Issued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued
}

// Close cancels any scheduled or in-flight lookup. Later completions are ignored.
func (l *Lookup) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.supersedeLocked()
	l.closed = true
}
