package kvcache

import "strings"

// Deterministic key naming. Both the price fetcher and the history
// accumulator derive keys from these functions, which guarantees they address
// the same cache slot for the same coin. Coins differing only in case map to
// the same key.

// TransactionLogKey holds the full transaction log as a JSON array. It is
// written directly to the Storage, outside any cache namespace, so eviction
// can never touch it.
const TransactionLogKey = "transactions"

// LoadedFilesKey holds the list of imported CSV file names, for display only.
const LoadedFilesKey = "files"

// PriceKey returns the cache key of a coin's current price entry.
func PriceKey(coin string) string { return "price:" + normalize(coin) }

// HistoryKey returns the cache key of a coin's accumulated price history.
// History is accumulated indefinitely, so the key depends on nothing but the
// coin.
func HistoryKey(coin string) string { return "history:" + normalize(coin) }

func normalize(coin string) string { return strings.ToLower(strings.TrimSpace(coin)) }
