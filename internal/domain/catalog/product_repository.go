package catalog

import (
	"context"

	"github.com/google/uuid"
)

// RowAction reports what a Upsert actually did at the storage layer. It is
// returned by the upsert statement itself, not inferred from timestamps.
type RowAction string

const (
	RowInserted  RowAction = "inserted"
	RowUpdated   RowAction = "updated"
	RowUnchanged RowAction = "unchanged"
)

// ProductRepository is the persistence gateway for unified products.
type ProductRepository interface {
	// Upsert atomically inserts or updates the row keyed on
	// (supplier_id, supplier_sku) and reports which action was taken.
	// A row whose content hash matches the incoming record is reported
	// as RowUnchanged.
	Upsert(ctx context.Context, product *Product) (RowAction, error)

	// DeactivateMissing flips active=false for every product of the
	// supplier whose supplier_sku is not in keepSKUs, returning the number
	// of rows deactivated. Rows are never deleted.
	DeactivateMissing(ctx context.Context, supplierID uuid.UUID, keepSKUs []string) (int64, error)

	// FindBySupplierSKU finds one product by its identity pair.
	FindBySupplierSKU(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (*Product, error)

	// CountBySupplier returns the number of products (active and inactive)
	// recorded for the supplier.
	CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)

	// CountActiveBySupplier returns the number of active products.
	CountActiveBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}
