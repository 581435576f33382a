// Package sync is the application layer over the supplier adapters: a
// registry of configured adapters, the orchestration service the CLI and API
// share, the stale-run reaper and the daily scheduler.
package sync

import (
	"sort"
	"sync"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// Registry holds the configured supplier adapters keyed by supplier code.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]syncdomain.Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]syncdomain.Adapter)}
}

// Register adds an adapter under its supplier code. Registering the same
// code twice replaces the earlier adapter.
func (r *Registry) Register(code string, adapter syncdomain.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[code] = adapter
}

// Get returns the adapter for a supplier code.
func (r *Registry) Get(code string) (syncdomain.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_SUPPLIER", "No adapter registered for supplier "+code)
	}
	return adapter, nil
}

// Codes returns the registered supplier codes in stable order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.adapters))
	for code := range r.adapters {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
