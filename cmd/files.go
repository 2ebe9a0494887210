package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/harukit/cryptofolio"
)

type filesCmd struct {
	remove string
}

func (*filesCmd) Name() string     { return "files" }
func (*filesCmd) Synopsis() string { return "list imported CSV files, or remove one and its trades" }
func (*filesCmd) Usage() string {
	return `cfo files [-remove <file.csv>]

  Lists the imported CSV files. With -remove, drops every transaction that
  came from that file and forgets the file.
`
}

func (c *filesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.remove, "remove", "", "File name to remove, with all its transactions.")
}

func (c *filesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	storage, err := OpenStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	files, err := cryptofolio.LoadLoadedFiles(storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.remove == "" {
		if len(files) == 0 {
			fmt.Println("no files imported yet")
			return subcommands.ExitSuccess
		}
		for _, name := range files {
			fmt.Println(name)
		}
		return subcommands.ExitSuccess
	}

	log, err := cryptofolio.LoadTransactions(storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	kept := cryptofolio.RemoveFile(log, c.remove)
	if len(kept) == len(log) {
		fmt.Fprintf(os.Stderr, "no transactions imported from %q\n", c.remove)
	}

	var remaining []string
	for _, name := range files {
		if name != c.remove {
			remaining = append(remaining, name)
		}
	}

	if err := cryptofolio.SaveTransactions(storage, kept); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := cryptofolio.SaveLoadedFiles(storage, remaining); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("removed %d transactions from %s\n", len(log)-len(kept), c.remove)
	return subcommands.ExitSuccess
}
