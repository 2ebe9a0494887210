package cryptofolio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/harukit/cryptofolio/kvcache"
)

// Source is the remote price provider: batched spot prices by coin id, and
// per-coin daily history by day count. Implementations signal rate limiting
// and access denial with the sentinel errors of this package.
type Source interface {
	CurrentPrices(ctx context.Context, ids []string, currency string) (map[string]float64, error)
	DailyHistory(ctx context.Context, id, currency string, days int) ([]PricePoint, error)
}

// CurrentPriceEntry is the per-coin cache value for a spot price.
type CurrentPriceEntry struct {
	Price       float64 `json:"price_jpy"`
	LastUpdated int64   `json:"last_updated_at"` // epoch seconds
}

// PriceServiceConfig tunes the caching and rate-limit compliance policy. The
// numeric values are tuned for a free-tier remote source and are configuration,
// not behavior: only the shape (serialize, delay, degrade on 429) is fixed.
type PriceServiceConfig struct {
	Currency        string        // target currency, default "jpy"
	CurrentTTL      time.Duration // spot price cache lifetime, default 30m
	RefreshInterval time.Duration // minimum age before a history refetch, default 24h
	MaxHistoryDays  int           // cap on a single history request, default 365
	RequestDelay    time.Duration // pause between sequential history requests, default 300ms, negative to disable
	Timeout         time.Duration // per-request timeout, default 15s

	// SpotFallback, when set, resolves a coin's spot price from a secondary
	// source when the main one rate limits a batch. Best effort: a failing
	// fallback just leaves the coin unresolved.
	SpotFallback func(coin string) (float64, error)
}

func (c *PriceServiceConfig) setDefaults() {
	if c.Currency == "" {
		c.Currency = "jpy"
	}
	if c.CurrentTTL <= 0 {
		c.CurrentTTL = 30 * time.Minute
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 24 * time.Hour
	}
	if c.MaxHistoryDays <= 0 {
		c.MaxHistoryDays = 365
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	} else if c.RequestDelay == 0 {
		c.RequestDelay = 300 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// PriceService resolves current and historical prices for coins, consulting
// the cache first and falling back to the remote source. It owns the degrade
// policy: a rate-limited refresh must never wipe out previously good data.
type PriceService struct {
	store  *kvcache.Store
	source Source
	cfg    PriceServiceConfig
}

// NewPriceService wires a cache store and a remote source together.
func NewPriceService(store *kvcache.Store, source Source, cfg PriceServiceConfig) *PriceService {
	cfg.setDefaults()
	return &PriceService{store: store, source: source, cfg: cfg}
}

// FetchMeta describes how a batched price fetch went. Callers use it to
// decide whether to warn the user about partial data.
type FetchMeta struct {
	Requested   int      // coins asked for (after dropping unsupported ones)
	FromCache   int      // served from a live cache entry
	Fetched     int      // resolved by the remote source
	RateLimited bool     // the remote source answered 429
	Uncached    []string // coins that remain unresolved
	Errors      []string // non-fatal failures collected along the way
}

// CurrentPrices is the result of a batched spot price fetch: resolved prices
// keyed by coin symbol, and the metadata about how they were resolved.
type CurrentPrices struct {
	Prices map[string]float64
	Meta   FetchMeta
}

// FetchCurrentPrices resolves the spot price of every given coin, serving
// live cache entries first and issuing a single batched request for the rest.
// Freshly fetched prices are written back one cache entry per coin, so later
// lookups do not depend on this batch's composition.
//
// A rate-limited remote source is not an error: the affected coins are simply
// reported unresolved in the metadata. Only a request with no supported coin
// at all fails, with ErrUnsupportedCoin.
func (s *PriceService) FetchCurrentPrices(ctx context.Context, coins []string) (*CurrentPrices, error) {
	result := &CurrentPrices{Prices: make(map[string]float64)}

	// Filter to coins the remote source knows, dropping duplicates.
	var valid []string
	seen := make(map[string]bool)
	for _, coin := range coins {
		coin = NormalizeCoin(coin)
		if seen[coin] {
			continue
		}
		seen[coin] = true
		if _, ok := CoinID(coin); !ok {
			result.Meta.Errors = append(result.Meta.Errors, fmt.Sprintf("no price source mapping for %s", coin))
			continue
		}
		valid = append(valid, coin)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: none of [%s] is supported", ErrUnsupportedCoin, strings.Join(coins, ", "))
	}
	result.Meta.Requested = len(valid)

	// Serve what the cache can.
	var missed []string
	for _, coin := range valid {
		var entry CurrentPriceEntry
		if s.store.Get(kvcache.PriceKey(coin), &entry) {
			result.Prices[coin] = entry.Price
			result.Meta.FromCache++
		} else {
			missed = append(missed, coin)
		}
	}
	if len(missed) == 0 {
		return result, nil
	}

	// One batched request for the misses.
	ids := make([]string, len(missed))
	coinByID := make(map[string]string, len(missed))
	for i, coin := range missed {
		id, _ := CoinID(coin)
		ids[i] = id
		coinByID[id] = coin
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	prices, err := s.source.CurrentPrices(fetchCtx, ids, s.cfg.Currency)
	switch {
	case errors.Is(err, ErrRateLimited):
		log.Printf("price fetch rate limited, trying fallback for %d coins: %s", len(missed), strings.Join(missed, ", "))
		result.Meta.RateLimited = true
		now := time.Now().Unix()
		for _, coin := range missed {
			if s.cfg.SpotFallback == nil {
				result.Meta.Uncached = append(result.Meta.Uncached, coin)
				continue
			}
			price, ferr := s.cfg.SpotFallback(coin)
			if ferr != nil {
				log.Printf("spot fallback for %s failed: %v", coin, ferr)
				result.Meta.Uncached = append(result.Meta.Uncached, coin)
				continue
			}
			result.Prices[coin] = price
			result.Meta.Fetched++
			s.store.Set(kvcache.PriceKey(coin), CurrentPriceEntry{Price: price, LastUpdated: now}, s.cfg.CurrentTTL)
		}
		return result, nil
	case err != nil:
		log.Printf("price fetch failed: %v", err)
		result.Meta.Errors = append(result.Meta.Errors, err.Error())
		result.Meta.Uncached = missed
		return result, nil
	}

	now := time.Now().Unix()
	for id, price := range prices {
		coin, ok := coinByID[id]
		if !ok {
			continue
		}
		result.Prices[coin] = price
		result.Meta.Fetched++
		s.store.Set(kvcache.PriceKey(coin), CurrentPriceEntry{Price: price, LastUpdated: now}, s.cfg.CurrentTTL)
	}
	for _, coin := range missed {
		if _, ok := result.Prices[coin]; !ok {
			result.Meta.Uncached = append(result.Meta.Uncached, coin)
		}
	}
	return result, nil
}

// FetchPriceHistory returns the accumulated daily price series of one coin,
// refreshing it from the remote source when it is older than the refresh
// interval. Only the gap since the last accumulated day is requested, capped
// at MaxHistoryDays: a longer gap deliberately leaves a discontinuity rather
// than backfilling without bound.
//
// Unlike the batch operations this one propagates failures, including
// ErrRateLimited, to the caller.
func (s *PriceService) FetchPriceHistory(ctx context.Context, coin string) (*PriceHistorySeries, error) {
	coin = NormalizeCoin(coin)
	id, ok := CoinID(coin)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCoin, coin)
	}

	// Freshness is decided by the merge timestamp, not the entry TTL, so the
	// read deliberately bypasses expiry: a plain Get would delete an expired
	// entry and leave nothing for the rate-limit fallback to serve.
	var existing *PriceHistorySeries
	var cached PriceHistorySeries
	if s.store.GetStale(kvcache.HistoryKey(coin), &cached) {
		existing = &cached
		age := time.Now().UnixMilli() - cached.Meta.LastUpdated
		if age <= s.cfg.RefreshInterval.Milliseconds() {
			// Fresh enough, no network call.
			return existing, nil
		}
	}

	days := s.cfg.MaxHistoryDays
	if last, ok := existing.Last(); ok {
		if gap := Today().Sub(last.Date); gap < days {
			days = gap
		}
		if days < 1 {
			days = 1
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	points, err := s.source.DailyHistory(fetchCtx, id, s.cfg.Currency, days)
	if err != nil {
		return nil, fmt.Errorf("fetching %d days of %s history: %w", days, coin, err)
	}

	merged := MergeHistory(existing, coin, points)
	if len(points) > 0 {
		// Accumulated history never expires; it is only refreshed incrementally.
		s.store.Set(kvcache.HistoryKey(coin), merged, 0)
	}
	return merged, nil
}

// FetchMultiplePriceHistories resolves histories for several coins, strictly
// one at a time with a delay in between. The serialization is a rate-limit
// compliance requirement of the remote source, not a performance choice.
//
// A coin that still gets a 429 falls back to its stale cache entry, expired
// but present, so a rate-limited refresh does not lose previously good data.
// Coins that fail past that fallback map to nil; the batch itself never fails.
func (s *PriceService) FetchMultiplePriceHistories(ctx context.Context, coins []string) map[string]*PriceHistorySeries {
	result := make(map[string]*PriceHistorySeries, len(coins))

	for i, coin := range coins {
		coin = NormalizeCoin(coin)
		if i > 0 && s.cfg.RequestDelay > 0 {
			select {
			case <-time.After(s.cfg.RequestDelay):
			case <-ctx.Done():
				result[coin] = nil
				continue
			}
		}

		series, err := s.FetchPriceHistory(ctx, coin)
		if err == nil {
			result[coin] = series
			continue
		}

		if errors.Is(err, ErrRateLimited) {
			var stale PriceHistorySeries
			if s.store.GetStale(kvcache.HistoryKey(coin), &stale) {
				log.Printf("rate limited on %s history, serving stale cache (%d days)", coin, stale.Meta.TotalDays)
				result[coin] = &stale
				continue
			}
		}
		log.Printf("history fetch for %s failed: %v", coin, err)
		result[coin] = nil
	}
	return result
}
