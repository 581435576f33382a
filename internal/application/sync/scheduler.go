package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// SchedulerConfig tunes the daily full-sync scheduler.
type SchedulerConfig struct {
	// DailyHour and DailyMinute set the local time of the daily full sync.
	DailyHour   int
	DailyMinute int
	// CheckInterval is how often the loop wakes to check whether the run
	// is due.
	CheckInterval time.Duration
	// JobTimeout bounds one full sync across all suppliers.
	JobTimeout time.Duration
}

// DefaultSchedulerConfig runs the full sync at 03:00 local time.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DailyHour:     3,
		CheckInterval: time.Minute,
		JobTimeout:    90 * time.Minute,
	}
}

// Scheduler triggers the daily catalog sync across all registered suppliers.
// It tracks the last run date so a restart after the scheduled time does not
// trigger a second run the same day.
type Scheduler struct {
	config  SchedulerConfig
	service *Service
	logger  *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
	lastRunDate string
}

// NewScheduler creates the daily sync scheduler.
func NewScheduler(config SchedulerConfig, service *Service, logger *zap.Logger) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("sync scheduler started",
		zap.Int("daily_hour", s.config.DailyHour),
		zap.Int("daily_minute", s.config.DailyMinute),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runAll(ctx, now)
			}
		}
	}
}

// shouldRun reports whether the daily run is due and has not happened today.
func (s *Scheduler) shouldRun(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := now.Format("2006-01-02")
	if s.lastRunDate == today {
		return false
	}
	if now.Hour() < s.config.DailyHour {
		return false
	}
	if now.Hour() == s.config.DailyHour && now.Minute() < s.config.DailyMinute {
		return false
	}
	s.lastRunDate = today
	return true
}

func (s *Scheduler) runAll(ctx context.Context, now time.Time) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.config.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
	}
	defer cancel()

	s.logger.Info("scheduled sync starting", zap.Time("at", now))
	outcomes := s.service.RunAll(runCtx, syncdomain.Options{
		SessionName: "scheduled " + now.Format("2006-01-02"),
		TriggeredBy: "scheduler",
	})

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			failed++
		}
	}
	s.logger.Info("scheduled sync finished",
		zap.Int("suppliers", len(outcomes)),
		zap.Int("failed", failed),
	)
}
