package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/harukit/cryptofolio/kvcache"
)

type cacheCmd struct {
	clear bool
}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "show cache usage, or clear the cache" }
func (*cacheCmd) Usage() string {
	return `cfo cache [-clear]

  Shows how much of the storage quota the cache uses. With -clear, drops
  every cache entry. The transaction log is not cache and is never touched.
`
}

func (c *cacheCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.clear, "clear", false, "Drop every cache entry.")
}

func (c *cacheCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	storage, err := OpenStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	store := kvcache.NewStore(storage, "cache")

	if c.clear {
		store.Clear()
		fmt.Println("cache cleared")
		return subcommands.ExitSuccess
	}

	fmt.Printf("%d cache entries\n", store.Len())
	if max := storage.MaxBytes(); max > 0 {
		used := storage.UsedBytes()
		fmt.Printf("%d / %d bytes used (%.1f%%)\n", used, max, float64(used)/float64(max)*100)
	} else {
		fmt.Printf("%d bytes used, no quota\n", storage.UsedBytes())
	}
	return subcommands.ExitSuccess
}
