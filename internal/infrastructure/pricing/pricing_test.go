package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestVATMarginA(t *testing.T) {
	cost := decimal.NewFromInt(1000)
	selling := VATMarginA(cost)

	assert.True(t, selling.Equal(decimal.NewFromFloat(1322.5)),
		"expected 1322.50, got %s", selling)

	margin := Margin(cost, selling)
	assert.True(t, margin.Equal(decimal.NewFromFloat(32.25)),
		"expected 32.25%%, got %s", margin)
}

func TestVATMarginB(t *testing.T) {
	cost := decimal.NewFromInt(1000)
	selling := VATMarginB(cost)

	assert.True(t, selling.Equal(decimal.NewFromInt(1380)),
		"expected 1380.00, got %s", selling)

	margin := Margin(cost, selling)
	assert.True(t, margin.Equal(decimal.NewFromInt(38)),
		"expected 38%%, got %s", margin)
}

func TestStandardMarkup(t *testing.T) {
	tests := []struct {
		name     string
		cost     decimal.Decimal
		pct      decimal.Decimal
		expected decimal.Decimal
	}{
		{"25 percent", decimal.NewFromInt(400), decimal.NewFromInt(25), decimal.NewFromInt(500)},
		{"zero percent", decimal.NewFromInt(400), decimal.Zero, decimal.NewFromInt(400)},
		{"fractional cost", decimal.NewFromFloat(99.99), decimal.NewFromInt(100), decimal.NewFromFloat(199.98)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StandardMarkup(tt.cost, tt.pct)
			assert.True(t, got.Equal(tt.expected), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestDiscountAndRound(t *testing.T) {
	tests := []struct {
		name     string
		cost     decimal.Decimal
		pct      decimal.Decimal
		expected decimal.Decimal
	}{
		// 1289 * 0.9 = 1160.1 -> 1160
		{"rounds down", decimal.NewFromInt(1289), decimal.NewFromInt(10), decimal.NewFromInt(1160)},
		// 13462.55 * 0.9 = 12116.295 -> 12120
		{"rounds up", decimal.NewFromFloat(13462.55), decimal.NewFromInt(10), decimal.NewFromInt(12120)},
		// discounted lands exactly on a tie: rounds away from zero
		{"tie rounds up", decimal.NewFromInt(1165), decimal.Zero, decimal.NewFromInt(1170)},
		// already a multiple of ten stays put
		{"exact multiple", decimal.NewFromInt(2000), decimal.NewFromInt(10), decimal.NewFromInt(1800)},
		// just under a tie rounds down
		{"below tie", decimal.NewFromFloat(1164.99), decimal.Zero, decimal.NewFromInt(1160)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountAndRound(tt.cost, tt.pct)
			assert.True(t, got.Equal(tt.expected), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestRetailMinus(t *testing.T) {
	retail := decimal.NewFromInt(2000)
	cost := RetailMinus(retail, decimal.NewFromFloat(0.40))
	assert.True(t, cost.Equal(decimal.NewFromInt(1200)), "expected 1200, got %s", cost)
}

func TestMargin_ZeroCost(t *testing.T) {
	assert.True(t, Margin(decimal.Zero, decimal.NewFromInt(100)).IsZero())
	assert.True(t, Margin(decimal.NewFromInt(-5), decimal.NewFromInt(100)).IsZero())
}
