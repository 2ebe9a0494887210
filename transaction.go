package cryptofolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide parses a string into a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid", "買", "購入":
		return Buy, nil
	case "sell", "ask", "売", "売却":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown trade side: %q", s)
	}
}

// Exchange identifies the exchange a transaction was executed on.
type Exchange string

const (
	Bitflyer  Exchange = "bitflyer"
	Coincheck Exchange = "coincheck"
)

// Transaction is a single executed trade imported from an exchange CSV export.
// Transactions are immutable once created; the log is only appended to, or
// filtered when an imported file is removed.
type Transaction struct {
	Time     time.Time       `json:"date"`     // execution timestamp
	Coin     string          `json:"coinName"` // e.g. "BTC"
	Exchange Exchange        `json:"exchange"`
	Side     Side            `json:"type"`
	Quantity decimal.Decimal `json:"quantity"` // coin quantity, positive
	Amount   decimal.Decimal `json:"amount"`   // total JPY amount of the trade
	Fee      decimal.Decimal `json:"fee"`      // JPY fee
	Rate     decimal.Decimal `json:"rate"`     // JPY per coin at execution
	FileName string          `json:"fileName"` // source CSV file, for display and removal
}

// NewTransaction builds a transaction from plain float values. It is mostly a
// convenience for tests and the CSV importers.
func NewTransaction(at time.Time, coin string, exchange Exchange, side Side, quantity, amount, fee, rate float64) Transaction {
	return Transaction{
		Time:     at,
		Coin:     NormalizeCoin(coin),
		Exchange: exchange,
		Side:     side,
		Quantity: decimal.NewFromFloat(quantity),
		Amount:   decimal.NewFromFloat(amount),
		Fee:      decimal.NewFromFloat(fee),
		Rate:     decimal.NewFromFloat(rate),
	}
}

// NormalizeCoin maps coin symbols differing only in case to one canonical form.
func NormalizeCoin(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin))
}

// SortTransactions sorts a transaction log chronologically, preserving the
// relative order of trades carrying the same timestamp.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Time.Before(txs[j].Time) })
}
