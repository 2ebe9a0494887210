package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/harukit/cryptofolio"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import an exchange CSV export into the transaction log" }
func (*importCmd) Usage() string {
	return `cfo import <file.csv> [<file.csv> ...]

  Reads exchange CSV exports (bitFlyer or Coincheck, detected from the
  header) and merges their trades into the transaction log. Re-importing a
  file never duplicates trades.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "import: no CSV file given")
		return subcommands.ExitUsageError
	}

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
	files, err := cryptofolio.LoadLoadedFiles(storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	for _, path := range f.Args() {
		r, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		name := filepath.Base(path)
		txs, err := cryptofolio.ImportCSV(r, name)
		r.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}

		var dups int
		log, dups = cryptofolio.Merge(log, txs)
		files = cryptofolio.RecordLoadedFile(files, name)
		fmt.Printf("%s: %d trades, %d duplicates dropped\n", name, len(txs)-dups, dups)
	}

	cryptofolio.SortTransactions(log)
	if err := cryptofolio.SaveTransactions(storage, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := cryptofolio.SaveLoadedFiles(storage, files); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("transaction log now holds %d trades\n", len(log))
	return subcommands.ExitSuccess
}
