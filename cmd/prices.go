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

type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "fetch current spot prices in JPY" }
func (*pricesCmd) Usage() string {
	return `cfo prices [<coin> ...]

  Resolves the current JPY spot price of the given coins, cache first.
  Without arguments, prices every coin held in the portfolio.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	storage, err := OpenStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	coins := f.Args()
	if len(coins) == 0 {
		log, err := cryptofolio.LoadTransactions(storage)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		for _, agg := range cryptofolio.Analyze(log).Summary {
			if agg.HoldingQuantity.IsPositive() {
				coins = append(coins, agg.Coin)
			}
		}
		if len(coins) == 0 {
			fmt.Println("nothing held, give coin symbols explicitly: cfo prices BTC ETH")
			return subcommands.ExitSuccess
		}
	}

	result, err := NewPriceService(storage).FetchCurrentPrices(ctx, coins)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.PricesMarkdown(result))
	return subcommands.ExitSuccess
}
