package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

// GormProductRepository implements catalog.ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// upsertSQL is a single conditional insert-or-update so the operation stays
// atomic under concurrent syncs of different suppliers sharing the table.
// Three outcomes, all read from the statement itself:
//   - no row returned: the conflict row's content hash matched, nothing to do
//   - xmax = 0: a fresh insert
//   - xmax <> 0: an update of an existing row
//
// The WHERE guard on DO UPDATE skips rows whose content did not change, which
// both keeps updated_at honest and gives exact unchanged counts without a
// timestamp heuristic.
const upsertSQL = `
INSERT INTO products (
	id, created_at, updated_at,
	name, sku, model, brand, category, description,
	cost_price, retail_price, selling_price, margin_percent,
	stock_total, stock_cpt, stock_jhb, stock_dbn,
	images, specifications,
	use_case, scenario_tags, mounting_type, exclude_from_consultation,
	supplier_id, supplier_sku, active, content_hash
) VALUES (
	?, ?, ?,
	?, ?, ?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?
)
ON CONFLICT (supplier_id, supplier_sku) DO UPDATE SET
	updated_at = EXCLUDED.updated_at,
	name = EXCLUDED.name,
	sku = EXCLUDED.sku,
	model = EXCLUDED.model,
	brand = EXCLUDED.brand,
	category = EXCLUDED.category,
	description = EXCLUDED.description,
	cost_price = EXCLUDED.cost_price,
	retail_price = EXCLUDED.retail_price,
	selling_price = EXCLUDED.selling_price,
	margin_percent = EXCLUDED.margin_percent,
	stock_total = EXCLUDED.stock_total,
	stock_cpt = EXCLUDED.stock_cpt,
	stock_jhb = EXCLUDED.stock_jhb,
	stock_dbn = EXCLUDED.stock_dbn,
	images = EXCLUDED.images,
	specifications = EXCLUDED.specifications,
	use_case = EXCLUDED.use_case,
	scenario_tags = EXCLUDED.scenario_tags,
	mounting_type = EXCLUDED.mounting_type,
	exclude_from_consultation = EXCLUDED.exclude_from_consultation,
	active = EXCLUDED.active,
	content_hash = EXCLUDED.content_hash
WHERE products.content_hash IS DISTINCT FROM EXCLUDED.content_hash
RETURNING (xmax = 0) AS inserted`

// Upsert inserts or updates one product keyed on (supplier_id, supplier_sku)
// and reports the row action taken by the storage layer.
func (r *GormProductRepository) Upsert(ctx context.Context, p *catalog.Product) (catalog.RowAction, error) {
	if p.ContentHash == "" {
		p.RefreshContentHash()
	}

	row := r.db.WithContext(ctx).Raw(upsertSQL,
		p.ID, p.CreatedAt, p.UpdatedAt,
		p.Name, p.SKU, p.Model, p.Brand, p.Category, p.Description,
		p.CostPrice, p.RetailPrice, p.SellingPrice, p.MarginPercent,
		p.StockTotal, p.StockCPT, p.StockJHB, p.StockDBN,
		p.Images, p.Specifications,
		p.UseCase, p.ScenarioTags, p.MountingType, p.ExcludeFromConsultation,
		p.SupplierID, p.SupplierSKU, p.Active, p.ContentHash,
	).Row()

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.RowUnchanged, nil
		}
		return "", err
	}
	if inserted {
		return catalog.RowInserted, nil
	}
	return catalog.RowUpdated, nil
}

// DeactivateMissing soft-deactivates every product of the supplier whose SKU
// is absent from keepSKUs. With an empty keep set every product of the
// supplier is deactivated, which is what an upstream that stopped listing
// everything means.
func (r *GormProductRepository) DeactivateMissing(ctx context.Context, supplierID uuid.UUID, keepSKUs []string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("supplier_id = ? AND active = ?", supplierID, true)
	if len(keepSKUs) > 0 {
		query = query.Where("supplier_sku NOT IN ?", keepSKUs)
	}

	result := query.Updates(map[string]interface{}{"active": false})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindBySupplierSKU finds one product by its identity pair.
func (r *GormProductRepository) FindBySupplierSKU(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_sku = ?", supplierID, supplierSKU).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// CountBySupplier returns the number of products recorded for the supplier.
func (r *GormProductRepository) CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("supplier_id = ?", supplierID).
		Count(&count).Error
	return count, err
}

// CountActiveBySupplier returns the number of active products for the supplier.
func (r *GormProductRepository) CountActiveBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("supplier_id = ? AND active = ?", supplierID, true).
		Count(&count).Error
	return count, err
}
