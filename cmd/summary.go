package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/harukit/cryptofolio"
	"github.com/harukit/cryptofolio/renderer"
)

type summaryCmd struct {
	offline bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show holdings, cost basis and profit per coin" }
func (*summaryCmd) Usage() string {
	return `cfo summary [-offline]

  Analyzes the transaction log into per-coin holdings, weighted-average cost
  and realized profit, fetches current prices and shows unrealized profit on
  top. With -offline only cached prices are used.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Do not hit the network, use cached prices only.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	storage, err := OpenStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	log, err := cryptofolio.LoadTransactions(storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	p := cryptofolio.Analyze(log)

	var meta *cryptofolio.FetchMeta
	if len(p.Summary) > 0 && !c.offline {
		coins := make([]string, len(p.Summary))
		for i, agg := range p.Summary {
			coins[i] = agg.Coin
		}
		result, err := NewPriceService(storage).FetchCurrentPrices(ctx, coins)
		if err != nil {
			// No price at all is survivable: report cost basis only.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			p.UpdateWithPrices(result.Prices)
			meta = &result.Meta
		}
	}

	printMarkdown(renderer.SummaryMarkdown(p, meta))
	return subcommands.ExitSuccess
}
