package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

func newMockSupplierRepository(t *testing.T) (*GormSupplierRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSupplierRepository(gormDB), mock, mockDB
}

func TestGormSupplierRepository_FindByCode(t *testing.T) {
	t.Run("returns matching supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "code", "name", "source_type", "status"}).
			AddRow(id.String(), "denon", "Denon Distribution", "feed", "idle")

		mock.ExpectQuery(`SELECT \* FROM "suppliers"`).
			WithArgs("denon", 1).
			WillReturnRows(rows)

		supplier, err := repo.FindByCode(context.Background(), "denon")
		require.NoError(t, err)
		assert.Equal(t, id, supplier.ID)
		assert.Equal(t, syncdomain.SourceTypeFeed, supplier.SourceType)
		assert.Equal(t, syncdomain.SupplierIdle, supplier.Status)
	})

	t.Run("unknown code is ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "suppliers"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByCode(context.Background(), "nobody")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSupplierRepository_Update(t *testing.T) {
	t.Run("persists status transition", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplier, err := syncdomain.NewSupplier("proaudio", "Pro Audio Warehouse", syncdomain.SourceTypeScrape)
		require.NoError(t, err)
		require.NoError(t, supplier.BeginSync())

		mock.ExpectExec(`UPDATE "suppliers" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(context.Background(), supplier))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing supplier row is ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplier, err := syncdomain.NewSupplier("ghost", "Ghost", syncdomain.SourceTypeManual)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "suppliers" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(context.Background(), supplier)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
