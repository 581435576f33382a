package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SupplierRepository persists supplier records.
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByCode(ctx context.Context, code string) (*Supplier, error)
	FindAll(ctx context.Context) ([]Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
	Update(ctx context.Context, supplier *Supplier) error
}

// SessionRepository persists sync session audit records.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// Finalize writes the single terminal update of a session row.
	Finalize(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindRecentBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]Session, error)
	// FindStaleRunning returns sessions still marked running that started
	// before the cutoff, for the stale-run watchdog.
	FindStaleRunning(ctx context.Context, cutoff time.Time) ([]Session, error)
}
