// Package pricing holds the named price formulas used when normalizing
// supplier cost data. Every formula is a pure function of its inputs; margin
// is always derived from cost and selling price, never stored independently.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	vat        = decimal.NewFromFloat(1.15)
	marginA    = decimal.NewFromFloat(1.15)
	marginB    = decimal.NewFromFloat(1.20)
	oneHundred = decimal.NewFromInt(100)
	ten        = decimal.NewFromInt(10)
)

// Formula names a pricing rule. Supplier configuration selects one per source.
type Formula string

const (
	FormulaVATMarginA     Formula = "vat_margin_a"
	FormulaVATMarginB     Formula = "vat_margin_b"
	FormulaStandardMarkup Formula = "standard_markup"
	FormulaDiscountRound  Formula = "discount_round"
	FormulaRetailMinus    Formula = "retail_minus"
)

// VATMarginA applies 15% VAT then a 15% margin (32.25% total markup).
func VATMarginA(cost decimal.Decimal) decimal.Decimal {
	return cost.Mul(vat).Mul(marginA)
}

// VATMarginB applies 15% VAT then a 20% margin (38% total markup).
func VATMarginB(cost decimal.Decimal) decimal.Decimal {
	return cost.Mul(vat).Mul(marginB)
}

// StandardMarkup marks cost up by pct percent.
func StandardMarkup(cost decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(1).Add(pct.Div(oneHundred)))
}

// DiscountAndRound discounts cost by pct percent and rounds to the nearest
// 10 currency units. Ties round half away from zero, so 1165 becomes 1170.
func DiscountAndRound(cost decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	discounted := cost.Mul(decimal.NewFromInt(1).Sub(pct.Div(oneHundred)))
	return discounted.Div(ten).Round(0).Mul(ten)
}

// RetailMinus treats the upstream retail price as given and derives the
// internal cost as retail × (1 − pct), where pct is a fraction (0.40 = 40%).
func RetailMinus(retail decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return retail.Mul(decimal.NewFromInt(1).Sub(pct))
}

// Margin derives the margin percentage from cost and selling price. A zero
// or negative cost yields a zero margin rather than a division blowup.
func Margin(cost, selling decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return selling.Sub(cost).Div(cost).Mul(oneHundred)
}
