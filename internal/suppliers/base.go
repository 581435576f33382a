// Package suppliers holds one adapter per upstream catalog source. Each
// adapter pairs a fetch strategy with a transform into unified products and
// plugs into the shared run skeleton in Base, which owns the session
// lifecycle and the per-record failure policy.
package suppliers

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/logger"
)

// Entry is one upstream record after fetch+transform. Product is nil when the
// record could not be mapped, in which case Err carries the parse or
// transform failure for the session's error accounting.
type Entry struct {
	SKU     string
	Product *catalog.Product
	Err     error
}

// Source is the per-upstream half of an adapter: a cheap probe and a
// fetch+transform producing one Entry per upstream record. Per-record
// failures are attached to their Entry; only fatal failures (connection,
// authentication) are returned as the error.
type Source interface {
	Probe(ctx context.Context) error
	Fetch(ctx context.Context, supplierID uuid.UUID, limit int) ([]Entry, error)
}

// Deps bundles the repositories every adapter writes through.
type Deps struct {
	Products  catalog.ProductRepository
	Suppliers syncdomain.SupplierRepository
	Sessions  syncdomain.SessionRepository
	Logger    *zap.Logger
}

var validate = validator.New()

// Base implements the four-operation adapter contract around a Source. One
// Base per supplier; the supplier row is resolved by code at run time.
type Base struct {
	code   string
	source Source
	deps   Deps
	log    *zap.Logger
}

// NewBase wires a source into the shared run skeleton.
func NewBase(code string, source Source, deps Deps) *Base {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Base{
		code:   code,
		source: source,
		deps:   deps,
		log:    log.With(zap.String("supplier", code)),
	}
}

// Code returns the supplier code this adapter serves.
func (b *Base) Code() string {
	return b.code
}

// TestConnection implements the adapter contract. It never mutates state.
func (b *Base) TestConnection(ctx context.Context) error {
	return b.source.Probe(ctx)
}

// GetSupplierInfo returns the supplier row; a missing row aborts any sync.
func (b *Base) GetSupplierInfo(ctx context.Context) (*syncdomain.Supplier, error) {
	return b.deps.Suppliers.FindByCode(ctx, b.code)
}

// GetStatus returns a read-only snapshot. A missing supplier row yields an
// error-status snapshot rather than an error.
func (b *Base) GetStatus(ctx context.Context) *syncdomain.Snapshot {
	supplier, err := b.GetSupplierInfo(ctx)
	if err != nil {
		return &syncdomain.Snapshot{
			Code:   b.code,
			Status: syncdomain.SupplierError,
			Error:  err.Error(),
		}
	}

	snapshot := &syncdomain.Snapshot{
		SupplierID: supplier.ID,
		Code:       supplier.Code,
		Name:       supplier.Name,
		Status:     supplier.Status,
		LastSyncAt: supplier.LastSyncAt,
		Error:      supplier.LastError,
	}
	if count, err := b.deps.Products.CountBySupplier(ctx, supplier.ID); err == nil {
		snapshot.ProductCount = count
	}
	if count, err := b.deps.Products.CountActiveBySupplier(ctx, supplier.ID); err == nil {
		snapshot.ActiveCount = count
	}
	return snapshot
}

// SyncProducts runs the full ingestion state machine: supplier running →
// session open → per-record upsert with error capture → end-of-life
// deactivation → single session flush → supplier status restored. Per-record
// failures never abort the run; connection and authentication failures do.
func (b *Base) SyncProducts(ctx context.Context, opts syncdomain.Options) (*syncdomain.Result, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, shared.NewDomainError("INVALID_OPTIONS", err.Error())
	}

	supplier, err := b.GetSupplierInfo(ctx)
	if err != nil {
		return nil, err
	}

	if err := supplier.BeginSync(); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := b.deps.Suppliers.Update(ctx, supplier); err != nil {
			return nil, syncdomain.PersistenceError("supplier status", err)
		}
	}

	builder := syncdomain.NewSessionBuilder(supplier.ID, opts.SessionName, opts.TriggeredBy)
	if !opts.DryRun {
		if err := b.deps.Sessions.Create(ctx, builder.Session()); err != nil {
			supplier.CompleteSync(err)
			_ = b.deps.Suppliers.Update(ctx, supplier)
			return nil, syncdomain.PersistenceError("create session", err)
		}
	}

	runCtx, log := logger.WithSupplier(ctx, b.log, b.code)
	runCtx, log = logger.WithSessionID(runCtx, log, builder.Session().ID.String())
	log.Info("sync started",
		zap.Int("limit", opts.Limit),
		zap.Bool("dry_run", opts.DryRun),
		zap.String("triggered_by", builder.Session().TriggeredBy),
	)

	deactivated, runErr := b.run(runCtx, supplier, builder, opts)

	status := syncdomain.SessionCompleted
	if runErr != nil {
		status = syncdomain.SessionFailed
		builder.RecordError(runErr.Error())
	}
	session := builder.Finalize(status, deactivated)
	if !opts.DryRun {
		if err := b.deps.Sessions.Finalize(runCtx, session); err != nil {
			log.Error("session flush failed", zap.Error(err))
		}
		supplier.CompleteSync(runErr)
		if err := b.deps.Suppliers.Update(runCtx, supplier); err != nil {
			log.Error("supplier status update failed", zap.Error(err))
		}
	}

	result := &syncdomain.Result{
		Success:     runErr == nil && builder.ErrorCount() == 0,
		SessionID:   session.ID,
		SupplierID:  supplier.ID,
		Added:       session.Added,
		Updated:     session.Updated,
		Unchanged:   session.Unchanged,
		Deactivated: session.Deactivated,
		Errors:      builder.Errors(),
		Warnings:    builder.Warnings(),
		Duration:    time.Duration(session.DurationMS * int64(time.Millisecond)).String(),
		DryRun:      opts.DryRun,
	}

	log.Info("sync finished",
		zap.Bool("success", result.Success),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("deactivated", result.Deactivated),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
	)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// run performs the fetch and per-record persistence. It returns the number of
// deactivated rows and the fatal error that aborted the run, if any.
func (b *Base) run(ctx context.Context, supplier *syncdomain.Supplier, builder *syncdomain.SessionBuilder, opts syncdomain.Options) (int, error) {
	entries, err := b.source.Fetch(ctx, supplier.ID, opts.Limit)
	if err != nil {
		return 0, err
	}

	log := logger.FromContext(ctx)
	log.Info("catalog fetched", zap.Int("records", len(entries)))

	keepSKUs := make([]string, 0, len(entries))
	wrote := false
	for _, entry := range entries {
		if entry.Err != nil {
			// Malformed records are warnings; failed mappings are errors.
			// Either way the record is skipped and the run continues.
			if errors.Is(entry.Err, syncdomain.ErrParse) {
				builder.RecordWarning(entry.Err.Error())
			} else {
				builder.RecordError(entry.Err.Error())
			}
			continue
		}

		keepSKUs = append(keepSKUs, entry.SKU)

		if opts.DryRun {
			// Classify against the current row so the reported split
			// matches what a live run would write, without touching the
			// table.
			existing, err := b.deps.Products.FindBySupplierSKU(ctx, supplier.ID, entry.SKU)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				builder.RecordAdded()
			case err != nil:
				builder.RecordError(syncdomain.PersistenceError(entry.SKU, err).Error())
			default:
				if entry.Product.ContentHash == "" {
					entry.Product.RefreshContentHash()
				}
				if existing.ContentHash == entry.Product.ContentHash {
					builder.RecordUnchanged()
				} else {
					builder.RecordUpdated()
				}
			}
			continue
		}

		action, err := b.deps.Products.Upsert(ctx, entry.Product)
		if err != nil {
			perr := syncdomain.PersistenceError(entry.SKU, err)
			if !wrote {
				// The very first write failing points at the table, not
				// the record: abort instead of burning through the run.
				return 0, perr
			}
			builder.RecordError(perr.Error())
			continue
		}
		wrote = true

		switch action {
		case catalog.RowInserted:
			builder.RecordAdded()
		case catalog.RowUpdated:
			builder.RecordUpdated()
		default:
			builder.RecordUnchanged()
		}
	}

	// A limited or dry run sees a partial SKU set; deactivating against it
	// would soft-delete the rest of the catalog.
	if opts.Limit > 0 || opts.DryRun {
		return 0, nil
	}

	deactivated, err := b.deps.Products.DeactivateMissing(ctx, supplier.ID, keepSKUs)
	if err != nil {
		builder.RecordError(syncdomain.PersistenceError("deactivate missing", err).Error())
		return 0, nil
	}
	return int(deactivated), nil
}
