package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// GormSessionRepository implements sync.SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create writes the opening session row.
func (r *GormSessionRepository) Create(ctx context.Context, session *syncdomain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Finalize writes the single terminal update of a session row.
func (r *GormSessionRepository) Finalize(ctx context.Context, session *syncdomain.Session) error {
	result := r.db.WithContext(ctx).Model(session).
		Select("status", "completed_at", "duration_ms",
			"added", "updated", "unchanged", "deactivated",
			"errors", "warnings", "updated_at").
		Updates(session)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Session, error) {
	var session syncdomain.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindRecentBySupplier returns the supplier's latest sessions, newest first.
func (r *GormSessionRepository) FindRecentBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]syncdomain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []syncdomain.Session
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindStaleRunning returns sessions still marked running that started before
// the cutoff. Used by the stale-run watchdog.
func (r *GormSessionRepository) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]syncdomain.Session, error) {
	var sessions []syncdomain.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", syncdomain.SessionRunning, cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
