package suppliers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/classify"
)

// stealthTestSource builds the transform side without a browser process.
func stealthTestSource(cfg StealthStoreConfig) *StealthStoreSource {
	return &StealthStoreSource{
		cfg:        cfg,
		classifier: classify.New(),
		logger:     zap.NewNop(),
	}
}

func TestStealthStoreSource_Transform(t *testing.T) {
	supplierID := uuid.New()
	source := stealthTestSource(StealthStoreConfig{
		BaseURL:        "https://store.example.test",
		PagePaths:      []string{"/collections/hifi"},
		ProfileDir:     t.TempDir(),
		RetailMinusPct: decimal.NewFromFloat(0.35),
	})

	record := func(v stealthProduct) json.RawMessage {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		return raw
	}

	t.Run("maps a rendered product card", func(t *testing.T) {
		entry := source.transform(supplierID, record(stealthProduct{
			SKU:       "MAR-CD6007",
			Name:      "  Marantz CD6007  ",
			Brand:     "Marantz",
			Category:  "CD Players",
			PriceText: "R 10 999.00",
			InStock:   true,
			Image:     "https://store.example.test/img/cd6007.jpg",
		}))
		require.NoError(t, entry.Err)
		p := entry.Product

		assert.Equal(t, "MAR-CD6007", p.SupplierSKU)
		assert.Equal(t, "Marantz CD6007", p.Name)
		assert.True(t, p.RetailPrice.Equal(decimal.NewFromInt(10999)), p.RetailPrice.String())
		// Cost is retail less the configured 35% fraction.
		assert.True(t, p.CostPrice.Equal(decimal.NewFromFloat(7149.35)), p.CostPrice.String())
		assert.Equal(t, 1, p.StockTotal)
		assert.True(t, p.Active)
	})

	t.Run("out of stock card carries zero stock", func(t *testing.T) {
		entry := source.transform(supplierID, record(stealthProduct{
			SKU: "MAR-PM6007", Name: "Marantz PM6007", PriceText: "R 11 999.00", InStock: false,
		}))
		require.NoError(t, entry.Err)
		assert.Equal(t, 0, entry.Product.StockTotal)
		assert.False(t, entry.Product.Active)
	})

	t.Run("priceless card is in stock only on paper", func(t *testing.T) {
		entry := source.transform(supplierID, record(stealthProduct{
			SKU: "MAR-SR5015", Name: "Marantz SR5015", PriceText: "Call for price", InStock: true,
		}))
		require.NoError(t, entry.Err)
		assert.True(t, entry.Product.RetailPrice.IsZero())
		assert.Equal(t, 0, entry.Product.StockTotal)
	})

	t.Run("unparseable record is a parse error", func(t *testing.T) {
		entry := source.transform(supplierID, json.RawMessage(`{"sku": 42}`))
		require.Error(t, entry.Err)
		assert.ErrorIs(t, entry.Err, syncdomain.ErrParse)
	})

	t.Run("record without sku is a transform error", func(t *testing.T) {
		entry := source.transform(supplierID, record(stealthProduct{Name: "Nameless"}))
		require.Error(t, entry.Err)
		assert.ErrorIs(t, entry.Err, syncdomain.ErrTransform)
	})
}

func TestStealthStoreSource_PageURL(t *testing.T) {
	source := stealthTestSource(StealthStoreConfig{BaseURL: "https://store.example.test/"})

	assert.Equal(t, "https://store.example.test/collections/hifi",
		source.pageURL("/collections/hifi"))
	assert.Equal(t, "https://other.example.test/page",
		source.pageURL("https://other.example.test/page"))
}
