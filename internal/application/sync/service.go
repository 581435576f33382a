package sync

import (
	"context"

	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// Service is the orchestration surface shared by the CLI, the HTTP API and
// the scheduler. It resolves adapters by supplier code and fans status reads
// out across the registry.
type Service struct {
	registry *Registry
	logger   *zap.Logger
}

// NewService creates the sync orchestration service.
func NewService(registry *Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, logger: logger}
}

// Run executes one sync for the named supplier.
func (s *Service) Run(ctx context.Context, code string, opts syncdomain.Options) (*syncdomain.Result, error) {
	adapter, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return adapter.SyncProducts(ctx, opts)
}

// RunAllOutcome pairs one supplier's run with its result or failure.
type RunAllOutcome struct {
	Code   string             `json:"code"`
	Result *syncdomain.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// RunAll syncs every registered supplier sequentially. One supplier failing
// does not stop the others; each outcome is reported on its own.
func (s *Service) RunAll(ctx context.Context, opts syncdomain.Options) []RunAllOutcome {
	outcomes := make([]RunAllOutcome, 0, len(s.registry.Codes()))
	for _, code := range s.registry.Codes() {
		if ctx.Err() != nil {
			outcomes = append(outcomes, RunAllOutcome{Code: code, Error: ctx.Err().Error()})
			continue
		}
		result, err := s.Run(ctx, code, opts)
		outcome := RunAllOutcome{Code: code, Result: result}
		if err != nil {
			outcome.Error = err.Error()
			s.logger.Error("supplier sync failed",
				zap.String("supplier", code), zap.Error(err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Status returns the snapshot for one supplier.
func (s *Service) Status(ctx context.Context, code string) (*syncdomain.Snapshot, error) {
	adapter, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return adapter.GetStatus(ctx), nil
}

// StatusAll returns a snapshot per registered supplier in code order.
func (s *Service) StatusAll(ctx context.Context) []*syncdomain.Snapshot {
	codes := s.registry.Codes()
	snapshots := make([]*syncdomain.Snapshot, 0, len(codes))
	for _, code := range codes {
		adapter, err := s.registry.Get(code)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, adapter.GetStatus(ctx))
	}
	return snapshots
}

// TestConnection probes one supplier's upstream.
func (s *Service) TestConnection(ctx context.Context, code string) error {
	adapter, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	return adapter.TestConnection(ctx)
}

// Codes exposes the registered supplier codes.
func (s *Service) Codes() []string {
	return s.registry.Codes()
}
