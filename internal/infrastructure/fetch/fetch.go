// Package fetch holds the acquisition primitives supplier adapters compose:
// paginated REST with a cursor fallback, single-shot XML feeds, authenticated
// HTML session scraping, and hardened browser automation with an
// API-interception fallback. Every pagination loop in this package carries a
// hard iteration ceiling independent of upstream "no more pages" signals.
package fetch

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultPageSize is the page size used against paginated upstreams.
	DefaultPageSize = 50
	// DefaultMaxPages caps every pagination loop. A misbehaving upstream
	// that paginates forever terminates here.
	DefaultMaxPages = 200
	// DefaultPolitenessDelay spaces successive requests to one upstream.
	DefaultPolitenessDelay = 750 * time.Millisecond
)

// ErrEndOfPages is returned by page functions to signal natural pagination
// end. An HTTP 400 from a paginated endpoint is mapped to this, not treated
// as a failure; several upstreams answer 400 past their last page.
var ErrEndOfPages = errors.New("fetch: end of pages")

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
