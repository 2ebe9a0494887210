// Package cryptofolio provides the functions and types for tracking a
// personal cryptocurrency portfolio denominated in JPY. It is designed to be
// local-first: all state lives in one key-value storage the user controls,
// and remote price data is cached aggressively so the tool stays useful under
// the rate limits of a free price API.
//
// The core functionalities include:
//   - Transaction Log: importing exchange CSV exports (bitFlyer, Coincheck)
//     into one chronological, duplicate-free record of trades.
//   - Portfolio Analysis: a stateless pass over the log computing per-coin
//     holdings, weighted-average purchase cost and realized profit, with
//     unrealized profit on top once current prices are known.
//   - Price Resolution: cache-first fetching of current spot prices and
//     accumulated daily price history, degrading gracefully (partial results,
//     stale data) when the remote source rate limits.
//   - Data Persistence: the transaction log and the price cache share one
//     storage backend (memory, disk or Redis) with a byte quota; only cache
//     entries are ever evicted.
//
// This package serves as the foundational logic for the `cfo` command-line
// tool.
package cryptofolio
