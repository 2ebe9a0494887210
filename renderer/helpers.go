// Package renderer turns analysis results into markdown reports.
package renderer

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// jpy formats a decimal JPY amount with the currency symbol and thousand
// separators. Yen has no minor unit, so amounts are rounded to whole yen.
func jpy(d decimal.Decimal) string {
	return money.New(d.Round(0).IntPart(), money.JPY).Display()
}

// jpyf is jpy for float amounts, used for spot prices.
func jpyf(f float64) string {
	return jpy(decimal.NewFromFloat(f))
}

// signedJPY is jpy with an explicit sign for profit columns.
func signedJPY(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + jpy(d)
	}
	return jpy(d)
}

// pct formats a percentage with a sign.
func pct(f float64) string {
	return fmt.Sprintf("%+.2f%%", f)
}
