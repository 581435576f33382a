package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// StaleRunReaper fails sync sessions that have been running longer than the
// TTL. A session only stays in running when its process died without
// finalizing; the row would otherwise block the supplier forever. The reaper
// sweeps once at startup and then on an interval.
type StaleRunReaper struct {
	sessions  syncdomain.SessionRepository
	suppliers syncdomain.SupplierRepository
	ttl       time.Duration
	interval  time.Duration
	logger    *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// SweepStats reports one reaper pass.
type SweepStats struct {
	Found  int `json:"found"`
	Reaped int `json:"reaped"`
	Failed int `json:"failed"`
}

// NewStaleRunReaper creates the reaper. ttl is how long a session may stay
// in running before it is presumed dead.
func NewStaleRunReaper(
	sessions syncdomain.SessionRepository,
	suppliers syncdomain.SupplierRepository,
	ttl time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *StaleRunReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaleRunReaper{
		sessions:  sessions,
		suppliers: suppliers,
		ttl:       ttl,
		interval:  interval,
		logger:    logger,
	}
}

// Sweep runs one reaper pass against the clock value now.
func (r *StaleRunReaper) Sweep(ctx context.Context, now time.Time) (*SweepStats, error) {
	cutoff := now.Add(-r.ttl)
	stale, err := r.sessions.FindStaleRunning(ctx, cutoff)
	if err != nil {
		r.logger.Error("stale session lookup failed", zap.Error(err))
		return nil, err
	}

	stats := &SweepStats{Found: len(stale)}
	if stats.Found == 0 {
		return stats, nil
	}
	r.logger.Info("found stale sync sessions", zap.Int("count", stats.Found))

	for i := range stale {
		session := &stale[i]
		if err := r.reap(ctx, session, now); err != nil {
			r.logger.Error("failed to reap stale session",
				zap.String("session_id", session.ID.String()),
				zap.String("supplier_id", session.SupplierID.String()),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		stats.Reaped++
	}

	r.logger.Info("stale session sweep complete",
		zap.Int("found", stats.Found),
		zap.Int("reaped", stats.Reaped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// reap fails one stale session and releases its supplier.
func (r *StaleRunReaper) reap(ctx context.Context, session *syncdomain.Session, now time.Time) error {
	reason := fmt.Sprintf("sync run abandoned: still running after %s", r.ttl)

	session.MarkStale(reason, now)
	if err := r.sessions.Finalize(ctx, session); err != nil {
		return err
	}

	supplier, err := r.suppliers.FindByID(ctx, session.SupplierID)
	if err != nil {
		// The session is already failed; a missing supplier row just
		// means there is no status to release.
		r.logger.Warn("supplier for stale session not found",
			zap.String("supplier_id", session.SupplierID.String()), zap.Error(err))
		return nil
	}
	if supplier.Status != syncdomain.SupplierRunning {
		return nil
	}
	supplier.MarkStale(reason)
	return r.suppliers.Update(ctx, supplier)
}

// Start begins the periodic sweep, including an immediate pass.
func (r *StaleRunReaper) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("stale run reaper started",
		zap.Duration("ttl", r.ttl),
		zap.Duration("interval", r.interval),
	)
}

// Stop halts the periodic sweep and waits for an in-flight pass.
func (r *StaleRunReaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("stale run reaper stopped")
}

func (r *StaleRunReaper) loop(ctx context.Context) {
	defer r.wg.Done()

	if _, err := r.Sweep(ctx, time.Now()); err != nil && ctx.Err() == nil {
		r.logger.Error("startup sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx, time.Now()); err != nil && ctx.Err() == nil {
				r.logger.Error("periodic sweep failed", zap.Error(err))
			}
		}
	}
}
