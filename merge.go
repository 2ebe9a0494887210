package cryptofolio

import (
	"github.com/shopspring/decimal"
)

// Tolerances for duplicate detection. Exchange exports round quantity and
// amount differently between report versions, so exact equality would re-import
// the same trade twice.
var (
	quantityTolerance = decimal.New(1, -8) // 1e-8 coin
	amountTolerance   = decimal.New(1, -2) // 0.01 JPY
)

// IsDuplicate reports whether two transactions describe the same trade.
// Identity is the tuple (time, coin, exchange, side, quantity±1e-8,
// amount±0.01). The predicate is symmetric.
func IsDuplicate(a, b Transaction) bool {
	if !a.Time.Equal(b.Time) {
		return false
	}
	if NormalizeCoin(a.Coin) != NormalizeCoin(b.Coin) || a.Exchange != b.Exchange || a.Side != b.Side {
		return false
	}
	if a.Quantity.Sub(b.Quantity).Abs().GreaterThan(quantityTolerance) {
		return false
	}
	if a.Amount.Sub(b.Amount).Abs().GreaterThan(amountTolerance) {
		return false
	}
	return true
}

// Merge appends the transactions of incoming that are not already present in
// existing, preserving their relative order. Duplicates are dropped silently;
// the count of dropped transactions is returned so callers can report it.
//
// Incoming is also checked against previously accepted incoming transactions,
// so a batch containing its own duplicates is collapsed too. Merge never
// mutates existing: it returns a new list. Applying the same batch twice
// yields the same result as applying it once.
func Merge(existing, incoming []Transaction) (merged []Transaction, duplicates int) {
	merged = make([]Transaction, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for _, tx := range incoming {
		if containsDuplicate(merged, tx) {
			duplicates++
			continue
		}
		merged = append(merged, tx)
	}
	return merged, duplicates
}

func containsDuplicate(txs []Transaction, tx Transaction) bool {
	for _, t := range txs {
		if IsDuplicate(t, tx) {
			return true
		}
	}
	return false
}
