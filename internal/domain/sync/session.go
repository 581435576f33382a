package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

// SessionStatus is the lifecycle state of one sync run's audit record.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is the audit record of one adapter run. It is created when the run
// starts and written exactly once more when the run finalizes; per-record
// progress is accumulated in memory by the SessionBuilder, never row by row.
type Session struct {
	shared.BaseEntity
	SupplierID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name        string        `gorm:"type:varchar(150)"`
	TriggeredBy string        `gorm:"type:varchar(100);not null;default:'manual'"`
	Status      SessionStatus `gorm:"type:varchar(20);not null;default:'running'"`
	StartedAt   time.Time     `gorm:"not null"`
	CompletedAt *time.Time
	DurationMS  int64 `gorm:"not null;default:0"`

	Added       int `gorm:"not null;default:0"`
	Updated     int `gorm:"not null;default:0"`
	Unchanged   int `gorm:"not null;default:0"`
	Deactivated int `gorm:"not null;default:0"`

	Errors   string `gorm:"type:jsonb;default:'[]'"`
	Warnings string `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (Session) TableName() string {
	return "sync_sessions"
}

// ErrorList decodes the accumulated error messages.
func (s *Session) ErrorList() []string {
	return decodeStringList(s.Errors)
}

// WarningList decodes the accumulated warning messages.
func (s *Session) WarningList() []string {
	return decodeStringList(s.Warnings)
}

func decodeStringList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// MarkStale force-fails an abandoned running session. The run it belonged to
// crashed or was killed, so its counts stay at whatever was flushed, which
// for an abandoned run is zero.
func (s *Session) MarkStale(reason string, now time.Time) {
	s.Status = SessionFailed
	s.CompletedAt = &now
	s.DurationMS = now.Sub(s.StartedAt).Milliseconds()
	s.Errors = encodeStringList(append(s.ErrorList(), reason))
	s.Touch()
}

// SessionBuilder owns the in-memory accumulation for one run. It is passed by
// ownership through the sync pipeline and flushed into the Session row once,
// at finalization.
type SessionBuilder struct {
	session   *Session
	added     int
	updated   int
	unchanged int
	errors    []string
	warnings  []string
}

// NewSessionBuilder opens a session for a run.
func NewSessionBuilder(supplierID uuid.UUID, name, triggeredBy string) *SessionBuilder {
	if triggeredBy == "" {
		triggeredBy = "manual"
	}
	return &SessionBuilder{
		session: &Session{
			BaseEntity:  shared.NewBaseEntity(),
			SupplierID:  supplierID,
			Name:        name,
			TriggeredBy: triggeredBy,
			Status:      SessionRunning,
			StartedAt:   time.Now(),
			Errors:      "[]",
			Warnings:    "[]",
		},
	}
}

// Session returns the underlying session row. Before Finalize it reflects
// only the opening state; counts are not written through until the flush.
func (b *SessionBuilder) Session() *Session {
	return b.session
}

// RecordAdded counts one inserted product.
func (b *SessionBuilder) RecordAdded() { b.added++ }

// RecordUpdated counts one updated product.
func (b *SessionBuilder) RecordUpdated() { b.updated++ }

// RecordUnchanged counts one product whose content did not change.
func (b *SessionBuilder) RecordUnchanged() { b.unchanged++ }

// RecordError appends a per-record error. Errors never abort the run.
func (b *SessionBuilder) RecordError(msg string) { b.errors = append(b.errors, msg) }

// RecordWarning appends a per-record warning.
func (b *SessionBuilder) RecordWarning(msg string) { b.warnings = append(b.warnings, msg) }

// Added returns the running insert count.
func (b *SessionBuilder) Added() int { return b.added }

// Updated returns the running update count.
func (b *SessionBuilder) Updated() int { return b.updated }

// Unchanged returns the running unchanged count.
func (b *SessionBuilder) Unchanged() int { return b.unchanged }

// ErrorCount returns the number of accumulated errors.
func (b *SessionBuilder) ErrorCount() int { return len(b.errors) }

// Errors returns a copy of the accumulated errors.
func (b *SessionBuilder) Errors() []string {
	return append([]string(nil), b.errors...)
}

// Warnings returns a copy of the accumulated warnings.
func (b *SessionBuilder) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// Finalize flushes the accumulated state into the session row as the single
// terminal write and returns it. deactivated comes from the end-of-life pass,
// which runs after all upserts.
func (b *SessionBuilder) Finalize(status SessionStatus, deactivated int) *Session {
	now := time.Now()
	s := b.session
	s.Status = status
	s.CompletedAt = &now
	s.DurationMS = now.Sub(s.StartedAt).Milliseconds()
	s.Added = b.added
	s.Updated = b.updated
	s.Unchanged = b.unchanged
	s.Deactivated = deactivated
	s.Errors = encodeStringList(b.errors)
	s.Warnings = encodeStringList(b.warnings)
	s.Touch()
	return s
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}
