package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// The supplier and session repositories use only portable GORM queries, so
// they run against in-memory SQLite end to end. The product upsert path is
// PostgreSQL-specific and is covered by the sqlmock tests instead.
func setupSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&syncdomain.Supplier{}, &syncdomain.Session{})
	require.NoError(t, err)

	return db
}

func TestGormSupplierRepository_RoundTrip(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSupplierRepository(db)
	ctx := context.Background()

	supplier, err := syncdomain.NewSupplier("denon", "Denon Dealer API", syncdomain.SourceTypeFeed)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, supplier))

	t.Run("finds by code case-insensitively", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "DENON")
		require.NoError(t, err)
		assert.Equal(t, supplier.ID, found.ID)
		assert.Equal(t, syncdomain.SupplierIdle, found.Status)
	})

	t.Run("unknown code maps to not found", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "nad")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("update persists status transitions", func(t *testing.T) {
		require.NoError(t, supplier.BeginSync())
		require.NoError(t, repo.Update(ctx, supplier))

		found, err := repo.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SupplierRunning, found.Status)

		supplier.CompleteSync(nil)
		require.NoError(t, repo.Update(ctx, supplier))

		found, err = repo.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SupplierIdle, found.Status)
		assert.NotNil(t, found.LastSyncAt)
	})

	t.Run("finds all ordered by code", func(t *testing.T) {
		second, err := syncdomain.NewSupplier("audiotech", "Audio-Technica Store", syncdomain.SourceTypeFeed)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, second))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "audiotech", all[0].Code)
		assert.Equal(t, "denon", all[1].Code)
	})
}

func TestGormSessionRepository_RoundTrip(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSessionRepository(db)
	ctx := context.Background()
	supplierID := uuid.New()

	t.Run("create then finalize", func(t *testing.T) {
		builder := syncdomain.NewSessionBuilder(supplierID, "nightly", "scheduler")
		require.NoError(t, repo.Create(ctx, builder.Session()))

		builder.RecordAdded()
		builder.RecordWarning("row 7: unparseable price")
		session := builder.Finalize(syncdomain.SessionCompleted, 2)
		require.NoError(t, repo.Finalize(ctx, session))

		found, err := repo.FindByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SessionCompleted, found.Status)
		assert.Equal(t, 1, found.Added)
		assert.Equal(t, 2, found.Deactivated)
		assert.Equal(t, []string{"row 7: unparseable price"}, found.WarningList())
		assert.NotNil(t, found.CompletedAt)
	})

	t.Run("finalizing an uncreated session is not found", func(t *testing.T) {
		orphan := syncdomain.NewSessionBuilder(supplierID, "", "cli").Finalize(syncdomain.SessionFailed, 0)
		assert.ErrorIs(t, repo.Finalize(ctx, orphan), shared.ErrNotFound)
	})

	t.Run("recent sessions come newest first", func(t *testing.T) {
		supplierID := uuid.New()
		for i, name := range []string{"old", "mid", "new"} {
			b := syncdomain.NewSessionBuilder(supplierID, name, "cli")
			b.Session().StartedAt = time.Now().Add(time.Duration(i-3) * time.Hour)
			require.NoError(t, repo.Create(ctx, b.Session()))
		}

		recent, err := repo.FindRecentBySupplier(ctx, supplierID, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "new", recent[0].Name)
		assert.Equal(t, "mid", recent[1].Name)
	})

	t.Run("stale scan only matches old running sessions", func(t *testing.T) {
		fresh := syncdomain.NewSessionBuilder(supplierID, "fresh", "api")
		require.NoError(t, repo.Create(ctx, fresh.Session()))

		abandoned := syncdomain.NewSessionBuilder(supplierID, "abandoned", "api")
		abandoned.Session().StartedAt = time.Now().Add(-5 * time.Hour)
		require.NoError(t, repo.Create(ctx, abandoned.Session()))

		stale, err := repo.FindStaleRunning(ctx, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)

		names := make([]string, 0, len(stale))
		for _, s := range stale {
			names = append(names, s.Name)
		}
		assert.Contains(t, names, "abandoned")
		assert.NotContains(t, names, "fresh")
	})
}
