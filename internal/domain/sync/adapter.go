package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Options controls a single sync run.
type Options struct {
	// Limit truncates the fetched set to at most Limit records. Zero means
	// no limit. Used for smoke tests against live upstreams.
	Limit int `json:"limit,omitempty" validate:"gte=0"`
	// DryRun performs fetch and transform but skips every write, logging
	// what would have happened.
	DryRun bool `json:"dry_run,omitempty"`
	// SessionName labels the sync session row.
	SessionName string `json:"session_name,omitempty"`
	// TriggeredBy labels who or what started the run (cli, scheduler, api).
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// Result is the outcome of one sync run, returned to the caller and printed
// by the CLI as JSON.
type Result struct {
	Success     bool      `json:"success"`
	SessionID   uuid.UUID `json:"session_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	Added       int       `json:"added"`
	Updated     int       `json:"updated"`
	Unchanged   int       `json:"unchanged"`
	Deactivated int       `json:"deactivated"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	Duration    string    `json:"duration"`
	DryRun      bool      `json:"dry_run,omitempty"`
}

// Snapshot is the read-only supplier status served to dashboards. It is
// always produced, even when the supplier row is missing, in which case
// Status is "error" and Error explains why.
type Snapshot struct {
	SupplierID   uuid.UUID      `json:"supplier_id"`
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	Status       SupplierStatus `json:"status"`
	LastSyncAt   *time.Time     `json:"last_sync_at,omitempty"`
	ProductCount int64          `json:"product_count"`
	ActiveCount  int64          `json:"active_count"`
	Error        string         `json:"error,omitempty"`
}

// Adapter is the contract every supplier source implements. One adapter
// wraps one upstream: it knows how to probe it, fetch its raw catalog,
// and map raw records into unified products.
type Adapter interface {
	// TestConnection is a cheap connectivity/auth probe. It never mutates
	// persisted state. A failed probe is not fatal to the caller.
	TestConnection(ctx context.Context) error

	// SyncProducts runs a full ingestion per Options.
	SyncProducts(ctx context.Context, opts Options) (*Result, error)

	// GetStatus returns a read-only snapshot. It tolerates a missing
	// supplier row by returning an error-status snapshot, not an error.
	GetStatus(ctx context.Context) *Snapshot

	// GetSupplierInfo returns the supplier record. A missing row is a
	// NotFound error and a sync against this adapter must abort.
	GetSupplierInfo(ctx context.Context) (*Supplier, error)
}
