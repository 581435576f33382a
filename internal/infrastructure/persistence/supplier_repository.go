package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// GormSupplierRepository implements sync.SupplierRepository using GORM.
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Supplier, error) {
	var supplier syncdomain.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByCode finds a supplier by its unique code
func (r *GormSupplierRepository) FindByCode(ctx context.Context, code string) (*syncdomain.Supplier, error) {
	var supplier syncdomain.Supplier
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToLower(code)).
		First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindAll returns all suppliers ordered by code
func (r *GormSupplierRepository) FindAll(ctx context.Context) ([]syncdomain.Supplier, error) {
	var suppliers []syncdomain.Supplier
	if err := r.db.WithContext(ctx).Order("code").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Save inserts a supplier record
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *syncdomain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// Update persists supplier state changes
func (r *GormSupplierRepository) Update(ctx context.Context, supplier *syncdomain.Supplier) error {
	result := r.db.WithContext(ctx).Model(supplier).
		Select("status", "last_sync_at", "last_error", "updated_at").
		Updates(supplier)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
