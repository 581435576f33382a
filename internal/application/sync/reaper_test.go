package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// memSessionRepo keeps sessions in memory for reaper tests.
type memSessionRepo struct {
	sessions  map[uuid.UUID]*syncdomain.Session
	findErr   error
	finalized []uuid.UUID
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]*syncdomain.Session{}}
}

func (m *memSessionRepo) Create(ctx context.Context, s *syncdomain.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) Finalize(ctx context.Context, s *syncdomain.Session) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return shared.ErrNotFound
	}
	m.sessions[s.ID] = s
	m.finalized = append(m.finalized, s.ID)
	return nil
}

func (m *memSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (m *memSessionRepo) FindRecentBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]syncdomain.Session, error) {
	return nil, nil
}

func (m *memSessionRepo) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]syncdomain.Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var stale []syncdomain.Session
	for _, s := range m.sessions {
		if s.Status == syncdomain.SessionRunning && s.StartedAt.Before(cutoff) {
			stale = append(stale, *s)
		}
	}
	return stale, nil
}

// memSupplierRepo keeps suppliers in memory for reaper tests.
type memSupplierRepo struct {
	suppliers map[uuid.UUID]*syncdomain.Supplier
}

func newMemSupplierRepo() *memSupplierRepo {
	return &memSupplierRepo{suppliers: map[uuid.UUID]*syncdomain.Supplier{}}
}

func (m *memSupplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (m *memSupplierRepo) FindByCode(ctx context.Context, code string) (*syncdomain.Supplier, error) {
	for _, s := range m.suppliers {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memSupplierRepo) FindAll(ctx context.Context) ([]syncdomain.Supplier, error) {
	return nil, nil
}

func (m *memSupplierRepo) Save(ctx context.Context, s *syncdomain.Supplier) error {
	m.suppliers[s.ID] = s
	return nil
}

func (m *memSupplierRepo) Update(ctx context.Context, s *syncdomain.Supplier) error {
	m.suppliers[s.ID] = s
	return nil
}

func staleSession(t *testing.T, supplierID uuid.UUID, age time.Duration) *syncdomain.Session {
	t.Helper()
	builder := syncdomain.NewSessionBuilder(supplierID, "nightly", "scheduler")
	session := builder.Session()
	session.StartedAt = time.Now().Add(-age)
	return session
}

func TestStaleRunReaper_Sweep(t *testing.T) {
	ttl := 2 * time.Hour

	t.Run("fails abandoned sessions and releases suppliers", func(t *testing.T) {
		sessions := newMemSessionRepo()
		suppliers := newMemSupplierRepo()

		supplier, err := syncdomain.NewSupplier("denon", "Denon SA", syncdomain.SourceTypeFeed)
		require.NoError(t, err)
		require.NoError(t, supplier.BeginSync())
		require.NoError(t, suppliers.Save(context.Background(), supplier))

		abandoned := staleSession(t, supplier.ID, 3*time.Hour)
		require.NoError(t, sessions.Create(context.Background(), abandoned))
		fresh := staleSession(t, supplier.ID, 10*time.Minute)
		require.NoError(t, sessions.Create(context.Background(), fresh))

		reaper := NewStaleRunReaper(sessions, suppliers, ttl, time.Minute, nil)
		stats, err := reaper.Sweep(context.Background(), time.Now())
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Found)
		assert.Equal(t, 1, stats.Reaped)
		assert.Equal(t, 0, stats.Failed)

		reaped, err := sessions.FindByID(context.Background(), abandoned.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SessionFailed, reaped.Status)
		assert.NotNil(t, reaped.CompletedAt)
		assert.NotEmpty(t, reaped.ErrorList())

		still, err := sessions.FindByID(context.Background(), fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SessionRunning, still.Status)

		released, err := suppliers.FindByID(context.Background(), supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SupplierError, released.Status)
		assert.Contains(t, released.LastError, "abandoned")
	})

	t.Run("idle supplier is left alone", func(t *testing.T) {
		sessions := newMemSessionRepo()
		suppliers := newMemSupplierRepo()

		supplier, err := syncdomain.NewSupplier("denon", "Denon SA", syncdomain.SourceTypeFeed)
		require.NoError(t, err)
		require.NoError(t, suppliers.Save(context.Background(), supplier))

		abandoned := staleSession(t, supplier.ID, 3*time.Hour)
		require.NoError(t, sessions.Create(context.Background(), abandoned))

		reaper := NewStaleRunReaper(sessions, suppliers, ttl, time.Minute, nil)
		stats, err := reaper.Sweep(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Reaped)

		// A supplier that already recovered keeps its idle status.
		unchanged, err := suppliers.FindByID(context.Background(), supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SupplierIdle, unchanged.Status)
	})

	t.Run("missing supplier row still reaps the session", func(t *testing.T) {
		sessions := newMemSessionRepo()
		suppliers := newMemSupplierRepo()

		abandoned := staleSession(t, uuid.New(), 3*time.Hour)
		require.NoError(t, sessions.Create(context.Background(), abandoned))

		reaper := NewStaleRunReaper(sessions, suppliers, ttl, time.Minute, nil)
		stats, err := reaper.Sweep(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Reaped)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		sessions := newMemSessionRepo()
		sessions.findErr = errors.New("db gone")

		reaper := NewStaleRunReaper(sessions, newMemSupplierRepo(), ttl, time.Minute, nil)
		_, err := reaper.Sweep(context.Background(), time.Now())
		assert.Error(t, err)
	})

	t.Run("nothing stale is a clean pass", func(t *testing.T) {
		reaper := NewStaleRunReaper(newMemSessionRepo(), newMemSupplierRepo(), ttl, time.Minute, nil)
		stats, err := reaper.Sweep(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Found)
	})
}

func TestStaleRunReaper_StartStop(t *testing.T) {
	reaper := NewStaleRunReaper(newMemSessionRepo(), newMemSupplierRepo(), time.Hour, time.Hour, nil)
	reaper.Start(context.Background())
	reaper.Start(context.Background()) // second start is a no-op
	reaper.Stop()
	reaper.Stop() // second stop is a no-op
}
