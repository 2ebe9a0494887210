// Package cmd implements the CLI application to track a crypto portfolio.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/harukit/cryptofolio"
	"github.com/harukit/cryptofolio/coingecko"
	"github.com/harukit/cryptofolio/kvcache"
)

// Commands lists every subcommand. A main package registers them all and
// executes the user-selected one.
var Commands = []subcommands.Command{
	&importCmd{},
	&filesCmd{},
	&summaryCmd{},
	&pricesCmd{},
	&historyCmd{},
	&cacheCmd{},
	&topicCmd{},
}

// As a CLI application, it has a very short lived lifecycle, so it is ok to
// use global variables.

var storageKind = flag.String("storage", "disk", "Storage backend: mem, disk or redis")
var storageDir = flag.String("storage-dir", defaultStorageDir(), "Data directory for the disk backend")
var redisAddr = flag.String("redis-addr", "localhost:6379", "Redis address for the redis backend")
var quotaBytes = flag.Int64("quota", 5<<20, "Storage byte quota (0 for unlimited)")
var plainOutput = flag.Bool("plain", false, "Print raw markdown instead of rendering it")

func init() {
	// A .env file is optional; the environment itself always wins.
	godotenv.Load()
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/cryptofolio"
	}
	return ".cryptofolio"
}

// OpenStorage opens the storage backend selected by the global flags.
func OpenStorage() (kvcache.Storage, error) {
	switch *storageKind {
	case "mem":
		return kvcache.NewMemStorage(*quotaBytes), nil
	case "disk":
		return kvcache.NewDiskStorage(*storageDir, *quotaBytes)
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		return kvcache.NewRedisStorage(rdb, "cryptofolio"), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want mem, disk or redis)", *storageKind)
	}
}

// NewPriceService wires the CoinGecko source and the cache store on top of a
// storage backend.
func NewPriceService(storage kvcache.Storage) *cryptofolio.PriceService {
	source := coingecko.New(coingecko.Config{APIKey: os.Getenv("COINGECKO_API_KEY")})
	store := kvcache.NewStore(storage, "cache")
	return cryptofolio.NewPriceService(store, source, cryptofolio.PriceServiceConfig{
		SpotFallback: cryptofolio.BitflyerSpotJPY,
	})
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when rendering fails or -plain is set.
func printMarkdown(md string) {
	if !*plainOutput {
		if out, err := glamour.Render(md, "auto"); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
