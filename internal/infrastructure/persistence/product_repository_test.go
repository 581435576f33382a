package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

func newMockProductRepository(t *testing.T) (*GormProductRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormProductRepository(gormDB), mock, mockDB
}

func testProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(uuid.New(), "AMP-100", "Mixer Amplifier")
	require.NoError(t, err)
	require.NoError(t, p.SetPricing(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromFloat(1322.5)))
	require.NoError(t, p.SetStock(2, 3, 0))
	p.RefreshContentHash()
	return p
}

func TestGormProductRepository_Upsert(t *testing.T) {
	t.Run("fresh row reports inserted", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

		action, err := repo.Upsert(context.Background(), testProduct(t))
		require.NoError(t, err)
		assert.Equal(t, catalog.RowInserted, action)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflicting row reports updated", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

		action, err := repo.Upsert(context.Background(), testProduct(t))
		require.NoError(t, err)
		assert.Equal(t, catalog.RowUpdated, action)
	})

	t.Run("identical content reports unchanged", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		// The DO UPDATE WHERE guard filters the row out, so the
		// statement returns nothing.
		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(sqlmock.NewRows([]string{"inserted"}))

		action, err := repo.Upsert(context.Background(), testProduct(t))
		require.NoError(t, err)
		assert.Equal(t, catalog.RowUnchanged, action)
	})

	t.Run("fills content hash when missing", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

		p := testProduct(t)
		p.ContentHash = ""
		_, err := repo.Upsert(context.Background(), p)
		require.NoError(t, err)
		assert.NotEmpty(t, p.ContentHash)
	})
}

func TestGormProductRepository_DeactivateMissing(t *testing.T) {
	t.Run("deactivates rows outside keep set", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()
		mock.ExpectExec(`UPDATE "products" SET "active"=\$1`).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := repo.DeactivateMissing(context.Background(), supplierID, []string{"AMP-100", "SPK-200"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})

	t.Run("empty keep set deactivates everything", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "products" SET "active"=\$1`).
			WillReturnResult(sqlmock.NewResult(0, 42))

		count, err := repo.DeactivateMissing(context.Background(), uuid.New(), nil)
		require.NoError(t, err)
		assert.EqualValues(t, 42, count)
	})
}

func TestGormProductRepository_FindBySupplierSKU(t *testing.T) {
	t.Run("missing row is ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindBySupplierSKU(context.Background(), uuid.New(), "GONE-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormProductRepository_Counts(t *testing.T) {
	repo, mock, mockDB := newMockProductRepository(t)
	defer mockDB.Close()

	supplierID := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(95))

	total, err := repo.CountBySupplier(context.Background(), supplierID)
	require.NoError(t, err)
	active, err := repo.CountActiveBySupplier(context.Background(), supplierID)
	require.NoError(t, err)

	assert.EqualValues(t, 120, total)
	assert.EqualValues(t, 95, active)
}
