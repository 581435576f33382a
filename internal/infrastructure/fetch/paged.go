package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// PageFunc fetches one page of records. Implementations map an upstream
// HTTP 400 to ErrEndOfPages and wrap transport failures as connection errors.
type PageFunc[T any] func(ctx context.Context, page, pageSize int) ([]T, error)

// SinceFunc fetches records after a cursor built from the last seen record's
// identifier, for upstreams whose page parameter silently stops advancing.
type SinceFunc[T any] func(ctx context.Context, sinceID string, pageSize int) ([]T, error)

// Paginator drives a page loop with the shared edge-case policy: short or
// empty pages end pagination, a limit truncates the final page, requests are
// spaced by a politeness delay, and a hard page ceiling guarantees
// termination against upstreams that paginate forever.
type Paginator[T any] struct {
	PageSize int
	MaxPages int
	Limit    int
	Delay    time.Duration
	// IDOf extracts a record's upstream identifier. Required for the
	// cursor fallback and for stall detection.
	IDOf   func(T) string
	Logger *zap.Logger
}

// FetchAll runs the page loop. When fetchSince is non-nil and the page loop
// stalls (two consecutive pages with no unseen records), it falls back to
// since-cursor pagination; once both strategies come back empty twice in a
// row, pagination is declared complete.
func (p *Paginator[T]) FetchAll(ctx context.Context, fetchPage PageFunc[T], fetchSince SinceFunc[T]) ([]T, error) {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		all        []T
		seen       = make(map[string]bool)
		lastID     string
		stallCount int
	)

	appendNew := func(items []T) int {
		added := 0
		for _, item := range items {
			if p.Limit > 0 && len(all) >= p.Limit {
				break
			}
			if p.IDOf != nil {
				id := p.IDOf(item)
				if seen[id] {
					continue
				}
				seen[id] = true
				lastID = id
			}
			all = append(all, item)
			added++
		}
		return added
	}

	for page := 1; page <= maxPages; page++ {
		items, err := fetchPage(ctx, page, pageSize)
		if err != nil {
			if errors.Is(err, ErrEndOfPages) {
				return all, nil
			}
			return all, err
		}
		if len(items) == 0 {
			return all, nil
		}

		added := appendNew(items)
		if p.Limit > 0 && len(all) >= p.Limit {
			logger.Debug("pagination truncated at limit", zap.Int("limit", p.Limit))
			return all, nil
		}

		if added == 0 && p.IDOf != nil {
			stallCount++
			if stallCount >= 2 {
				if fetchSince == nil {
					logger.Warn("pagination stalled with no cursor fallback",
						zap.Int("page", page), zap.Int("fetched", len(all)))
					return all, nil
				}
				logger.Info("page pagination stalled, switching to since cursor",
					zap.Int("page", page), zap.String("since_id", lastID))
				return p.fetchByCursor(ctx, fetchSince, all, seen, lastID, pageSize, maxPages-page)
			}
		} else {
			stallCount = 0
		}

		if len(items) < pageSize {
			return all, nil
		}
		if err := sleep(ctx, p.delay()); err != nil {
			return all, err
		}
	}

	logger.Warn("pagination hit hard page ceiling", zap.Int("max_pages", maxPages), zap.Int("fetched", len(all)))
	return all, nil
}

// fetchByCursor continues pagination with a since_id cursor.
func (p *Paginator[T]) fetchByCursor(ctx context.Context, fetchSince SinceFunc[T], all []T, seen map[string]bool, sinceID string, pageSize, budget int) ([]T, error) {
	emptyRounds := 0
	for i := 0; i < budget; i++ {
		items, err := fetchSince(ctx, sinceID, pageSize)
		if err != nil {
			if errors.Is(err, ErrEndOfPages) {
				return all, nil
			}
			return all, err
		}

		added := 0
		for _, item := range items {
			if p.Limit > 0 && len(all) >= p.Limit {
				return all, nil
			}
			id := p.IDOf(item)
			if seen[id] {
				continue
			}
			seen[id] = true
			sinceID = id
			all = append(all, item)
			added++
		}

		if added == 0 {
			emptyRounds++
			if emptyRounds >= 2 {
				return all, nil
			}
		} else {
			emptyRounds = 0
		}

		if len(items) < pageSize {
			return all, nil
		}
		if err := sleep(ctx, p.delay()); err != nil {
			return all, err
		}
	}
	return all, nil
}

func (p *Paginator[T]) delay() time.Duration {
	if p.Delay > 0 {
		return p.Delay
	}
	return DefaultPolitenessDelay
}
