package cryptofolio

import "sort"

// coinIDs maps exchange coin symbols to the remote price source's coin
// identifiers. Coins absent from this table cannot be priced and fail fast
// with ErrUnsupportedCoin before any network call.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"ETC":   "ethereum-classic",
	"XLM":   "stellar",
	"XEM":   "nem",
	"MONA":  "monacoin",
	"LSK":   "lisk",
	"BAT":   "basic-attention-token",
	"IOST":  "iostoken",
	"ENJ":   "enjincoin",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
}

// CoinID resolves a coin symbol (case-insensitive) to the remote source's
// identifier.
func CoinID(coin string) (string, bool) {
	id, ok := coinIDs[NormalizeCoin(coin)]
	return id, ok
}

// SupportedCoins returns the symbols that can be priced, sorted.
func SupportedCoins() []string {
	coins := make([]string, 0, len(coinIDs))
	for c := range coinIDs {
		coins = append(coins, c)
	}
	sort.Strings(coins)
	return coins
}
