// Package currency parses price text scraped from supplier storefronts.
// South African storefronts mix locale conventions freely: "R1 798,80",
// "R 4 690.00" with narrow no-break spaces, and "R50,000" with a thousands
// comma all appear in the wild.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// spaceVariants covers the whitespace code points seen in scraped price text
// beyond the ASCII space: no-break, narrow no-break, thin and figure spaces.
var spaceVariants = []rune{' ', ' ', ' ', ' ', ' '}

// Price is the outcome of parsing one price string. Absent is true when the
// text carries no price at all ("ask for price", "POA", empty), which is a
// distinct outcome from a zero price.
type Price struct {
	Amount decimal.Decimal
	Absent bool
}

// noPriceMarkers identify ask-for-price listings.
var noPriceMarkers = []string{
	"ask for price", "price on application", "poa", "p.o.a", "tba", "call for price",
}

// Parse parses a scraped price string. The comma ambiguity is resolved as:
// if both '.' and ',' appear, commas are thousands separators; if only ','
// appears and is followed by exactly two trailing digits it is a decimal
// separator, otherwise a thousands separator.
func Parse(text string) (Price, error) {
	normalized := normalizeSpaces(text)
	lowered := strings.ToLower(strings.TrimSpace(normalized))

	if lowered == "" {
		return Price{Absent: true}, nil
	}
	for _, marker := range noPriceMarkers {
		if strings.Contains(lowered, marker) {
			return Price{Absent: true}, nil
		}
	}

	cleaned := stripNonNumeric(normalized)
	if cleaned == "" {
		return Price{Absent: true}, nil
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	switch {
	case hasDot && hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		if isDecimalComma(cleaned) {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Price{}, err
	}
	return Price{Amount: amount}, nil
}

// isDecimalComma reports whether the single comma in the string acts as a
// decimal separator: it must be the only comma and be followed by exactly
// two digits.
func isDecimalComma(s string) bool {
	if strings.Count(s, ",") != 1 {
		return false
	}
	idx := strings.LastIndex(s, ",")
	return len(s)-idx-1 == 2
}

func normalizeSpaces(s string) string {
	for _, r := range spaceVariants {
		s = strings.ReplaceAll(s, string(r), " ")
	}
	return s
}

// stripNonNumeric removes the currency symbol, whitespace and anything else
// that is not a digit, comma or point.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
