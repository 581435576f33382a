package sync

import (
	"strings"
	"time"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

// SourceType describes how a supplier's catalog is acquired.
type SourceType string

const (
	SourceTypeFeed   SourceType = "feed"
	SourceTypeScrape SourceType = "scrape"
	SourceTypeManual SourceType = "manual"
)

// IsValid returns true if the source type is known
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeFeed, SourceTypeScrape, SourceTypeManual:
		return true
	default:
		return false
	}
}

// SupplierStatus is the supplier's sync state as seen by dashboards.
type SupplierStatus string

const (
	SupplierIdle    SupplierStatus = "idle"
	SupplierRunning SupplierStatus = "running"
	SupplierError   SupplierStatus = "error"
)

// Supplier is one upstream catalog source. Only the orchestrator mutates a
// supplier row; adapters read it but never write it.
type Supplier struct {
	shared.BaseEntity
	Code       string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name       string         `gorm:"type:varchar(150);not null"`
	SourceType SourceType     `gorm:"type:varchar(20);not null"`
	Status     SupplierStatus `gorm:"type:varchar(20);not null;default:'idle'"`
	LastSyncAt *time.Time
	LastError  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a supplier record.
func NewSupplier(code, name string, sourceType SourceType) (*Supplier, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Supplier code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Supplier name cannot be empty")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Unknown supplier source type")
	}
	return &Supplier{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		SourceType: sourceType,
		Status:     SupplierIdle,
	}, nil
}

// BeginSync transitions the supplier to running. A supplier already running
// cannot begin another sync; concurrent runs against one upstream are not
// allowed.
func (s *Supplier) BeginSync() error {
	if s.Status == SupplierRunning {
		return shared.ErrSyncInProgress
	}
	s.Status = SupplierRunning
	s.LastError = ""
	s.Touch()
	return nil
}

// CompleteSync finalizes the supplier state after a run. A nil runErr marks
// the supplier idle with a fresh LastSyncAt; a non-nil runErr marks it
// errored with the message attached.
func (s *Supplier) CompleteSync(runErr error) {
	if runErr != nil {
		s.Status = SupplierError
		s.LastError = runErr.Error()
	} else {
		now := time.Now()
		s.Status = SupplierIdle
		s.LastSyncAt = &now
		s.LastError = ""
	}
	s.Touch()
}

// MarkStale force-fails a supplier stuck in running, used by the stale-run
// watchdog when a crashed process never finalized its session.
func (s *Supplier) MarkStale(reason string) {
	s.Status = SupplierError
	s.LastError = reason
	s.Touch()
}
