package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/prep-mirrors/internal/types"
	"golang.org/x/sync/singleflight"
)

// Coalescing shares one upstream search among concurrent identical queries.
type Coalescing struct {
	next    Searcher
	timeout time.Duration
	group   singleflight.Group
}

// NewCoalescing wraps next. Shared calls are bounded by timeout.
func NewCoalescing(next Searcher, timeout time.Duration) *Coalescing {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Coalescing{next: next, timeout: timeout}
}

// SearchJobTitles implements Searcher.
func (c *Coalescing) SearchJobTitles(ctx context.Context, query string) ([]types.JobTitle, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	ch := c.group.DoChan(key, func() (any, error) {
		// One caller giving up must not cancel the others.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.next.SearchJobTitles(shared, query)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		titles, _ := res.Val.([]types.JobTitle)
		return titles, nil
	}
}
