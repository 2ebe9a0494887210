package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/harukit/cryptofolio"
	"github.com/harukit/cryptofolio/renderer"
)

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the accumulated daily price history of coins" }
func (*historyCmd) Usage() string {
	return `cfo history [-n <rows>] <coin> [<coin> ...]

  Shows the accumulated daily JPY price series of each coin, refreshing it
  from the price source when it is older than a day. Several coins are
  refreshed one at a time to respect the source's rate limits; a coin that
  cannot be refreshed falls back to its previously accumulated series.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 30, "Number of days to display, 0 for all.")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "history: no coin given")
		return subcommands.ExitUsageError
	}

	storage, err := OpenStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	series := NewPriceService(storage).FetchMultiplePriceHistories(ctx, f.Args())

	var failed []string
	for _, coin := range f.Args() {
		coin = cryptofolio.NormalizeCoin(coin)
		s := series[coin]
		if s == nil {
			failed = append(failed, coin)
			continue
		}
		printMarkdown(renderer.HistoryMarkdown(s, c.limit))
	}

	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "no history available for %s\n", strings.Join(failed, ", "))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
