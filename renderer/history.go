package renderer

import (
	"bytes"
	"fmt"
	"sort"

	md "github.com/nao1215/markdown"

	"github.com/harukit/cryptofolio"
)

// HistoryMarkdown renders one coin's accumulated daily price series, newest
// first, capped at limit rows (0 for all).
func HistoryMarkdown(s *cryptofolio.PriceHistorySeries, limit int) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	if s == nil || len(s.Data) == 0 {
		doc.H1("Price History")
		doc.PlainText("No history accumulated yet.")
		return doc.String()
	}

	doc.H1(fmt.Sprintf("Price History for %s", s.Coin))
	doc.PlainTextf("%d days accumulated, %s to %s.",
		s.Meta.TotalDays, s.Meta.FirstDate, s.Meta.LastDate)

	rows := s.Data
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Date", "Close"},
	}
	for i := len(rows) - 1; i >= 0; i-- {
		table.Rows = append(table.Rows, []string{rows[i].Date.String(), jpyf(rows[i].Price)})
	}
	doc.Table(table)

	return doc.String()
}

// PricesMarkdown renders the result of a batched spot price fetch.
func PricesMarkdown(r *cryptofolio.CurrentPrices) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Current Prices")

	coins := make([]string, 0, len(r.Prices))
	for coin := range r.Prices {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Coin", "Price"},
	}
	for _, coin := range coins {
		table.Rows = append(table.Rows, []string{coin, jpyf(r.Prices[coin])})
	}
	doc.Table(table)

	doc.PlainTextf("%d requested, %d from cache, %d fetched.",
		r.Meta.Requested, r.Meta.FromCache, r.Meta.Fetched)
	if r.Meta.RateLimited {
		doc.PlainText("> The price source is rate limiting us; some prices are missing.")
	}

	return doc.String()
}
