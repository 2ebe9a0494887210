package renderer

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/harukit/cryptofolio"
)

// SummaryMarkdown renders the portfolio analysis to a markdown report. meta
// may be nil when no price fetch was attempted.
func SummaryMarkdown(p *cryptofolio.Portfolio, meta *cryptofolio.FetchMeta) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Summary")

	if len(p.Summary) == 0 {
		doc.PlainText("No transactions imported yet.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Coin", "Holding", "Avg Rate", "Price", "Value", "Realized", "Total P/L"},
	}
	for _, agg := range p.Summary {
		price, value := "-", "-"
		if agg.CurrentPrice > 0 {
			price = jpyf(agg.CurrentPrice)
			value = jpy(agg.CurrentValue)
		}
		table.Rows = append(table.Rows, []string{
			agg.Coin,
			agg.HoldingQuantity.String(),
			jpy(agg.AveragePurchaseRate),
			price,
			value,
			signedJPY(agg.RealizedProfit),
			signedJPY(agg.TotalProfit),
		})
	}
	doc.Table(table)

	doc.H2("Totals")
	totals := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"", ""},
		Rows: [][]string{
			{"Investment", jpy(p.Stats.TotalInvestment)},
			{"Current Value", jpy(p.Stats.TotalCurrentValue)},
			{"Realized P/L", signedJPY(p.Stats.TotalRealized)},
			{"Unrealized P/L", signedJPY(p.Stats.TotalUnrealized)},
			{"Total P/L", fmt.Sprintf("%s (%s)", signedJPY(p.Stats.TotalProfit), pct(p.Stats.TotalMargin))},
			{"Fees", jpy(p.Stats.TotalFees)},
		},
	}
	doc.Table(totals)

	doc.PlainText(fmt.Sprintf("%d coins in profit, %d at a loss, %d priced.",
		p.Stats.ProfitableCoins, p.Stats.LosingCoins, p.Stats.PricedCoins))

	if meta != nil && (meta.RateLimited || len(meta.Uncached) > 0) {
		doc.PlainText("")
		doc.PlainTextf("> Prices for %s could not be refreshed (rate limited); values shown without them.",
			strings.Join(meta.Uncached, ", "))
	}

	return doc.String()
}
