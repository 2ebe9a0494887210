package cryptofolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harukit/cryptofolio/kvcache"
)

// fakeSource scripts the remote price provider.
type fakeSource struct {
	prices    map[string]float64
	pricesErr error

	history    map[string][]PricePoint
	historyErr error

	priceCalls   int
	historyCalls []string
	historyDays  []int
}

func (f *fakeSource) CurrentPrices(ctx context.Context, ids []string, currency string) (map[string]float64, error) {
	f.priceCalls++
	if f.pricesErr != nil {
		return nil, f.pricesErr
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeSource) DailyHistory(ctx context.Context, id, currency string, days int) ([]PricePoint, error) {
	f.historyCalls = append(f.historyCalls, id)
	f.historyDays = append(f.historyDays, days)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[id], nil
}

func newTestService(src Source) (*PriceService, *kvcache.Store) {
	store := kvcache.NewStore(kvcache.NewMemStorage(1<<20), "cache")
	svc := NewPriceService(store, src, PriceServiceConfig{RequestDelay: -1})
	return svc, store
}

func TestFetchCurrentPrices(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"bitcoin": 2500000, "ethereum": 200000}}
	svc, _ := newTestService(src)

	got, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC", "eth", "BTC"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Prices["BTC"] != 2500000 || got.Prices["ETH"] != 200000 {
		t.Errorf("prices = %v", got.Prices)
	}
	// duplicates collapse before counting
	if got.Meta.Requested != 2 || got.Meta.Fetched != 2 || got.Meta.FromCache != 0 {
		t.Errorf("meta = %+v", got.Meta)
	}
}

func TestFetchCurrentPricesCacheFirst(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"bitcoin": 2500000}}
	svc, _ := newTestService(src)

	if _, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC"}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatal(err)
	}
	if src.priceCalls != 1 {
		t.Errorf("remote calls = %d, want 1 (second fetch should hit the cache)", src.priceCalls)
	}
	if got.Meta.FromCache != 1 || got.Prices["BTC"] != 2500000 {
		t.Errorf("got %+v", got)
	}
}

func TestFetchCurrentPricesRateLimited(t *testing.T) {
	src := &fakeSource{pricesErr: ErrRateLimited}
	svc, _ := newTestService(src)

	got, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("a 429 must degrade, not fail: %v", err)
	}
	if !got.Meta.RateLimited {
		t.Error("RateLimited not set")
	}
	if len(got.Meta.Uncached) != 2 {
		t.Errorf("uncached = %v", got.Meta.Uncached)
	}
	if len(got.Prices) != 0 {
		t.Errorf("prices = %v", got.Prices)
	}
}

func TestFetchCurrentPricesSpotFallback(t *testing.T) {
	src := &fakeSource{pricesErr: ErrRateLimited}
	store := kvcache.NewStore(kvcache.NewMemStorage(1<<20), "cache")
	svc := NewPriceService(store, src, PriceServiceConfig{
		RequestDelay: -1,
		SpotFallback: func(coin string) (float64, error) {
			if coin == "BTC" {
				return 2600000, nil
			}
			return 0, ErrUnsupportedCoin
		},
	})

	got, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Meta.RateLimited {
		t.Error("RateLimited not set")
	}
	if got.Prices["BTC"] != 2600000 {
		t.Errorf("prices = %v, want BTC from the fallback", got.Prices)
	}
	if len(got.Meta.Uncached) != 1 || got.Meta.Uncached[0] != "ETH" {
		t.Errorf("uncached = %v, want [ETH]", got.Meta.Uncached)
	}

	// the fallback price is cached like any other
	var entry CurrentPriceEntry
	if !store.Get(kvcache.PriceKey("BTC"), &entry) || entry.Price != 2600000 {
		t.Errorf("fallback price not cached: %+v", entry)
	}
}

func TestFetchCurrentPricesUnsupported(t *testing.T) {
	// unsupported coins among supported ones are reported, not fatal
	src := &fakeSource{prices: map[string]float64{"bitcoin": 2500000}}
	svc, _ := newTestService(src)
	got, err := svc.FetchCurrentPrices(context.Background(), []string{"BTC", "NOPE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Meta.Errors) != 1 {
		t.Errorf("errors = %v", got.Meta.Errors)
	}

	// a request with no supported coin at all fails
	if _, err := svc.FetchCurrentPrices(context.Background(), []string{"NOPE"}); !errors.Is(err, ErrUnsupportedCoin) {
		t.Errorf("err = %v, want ErrUnsupportedCoin", err)
	}
}

func TestFetchPriceHistoryFreshCacheShortCircuits(t *testing.T) {
	today := Today()
	src := &fakeSource{history: map[string][]PricePoint{
		"bitcoin": {{today.Add(-1), 100}, {today, 110}},
	}}
	svc, _ := newTestService(src)

	first, err := svc.FetchPriceHistory(context.Background(), "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if first.Meta.TotalDays != 2 {
		t.Fatalf("days = %d, want 2", first.Meta.TotalDays)
	}

	// a series refreshed moments ago is served without a network call
	if _, err := svc.FetchPriceHistory(context.Background(), "BTC"); err != nil {
		t.Fatal(err)
	}
	if len(src.historyCalls) != 1 {
		t.Errorf("remote calls = %d, want 1", len(src.historyCalls))
	}
}

func TestFetchPriceHistoryGapLimitsDays(t *testing.T) {
	today := Today()
	src := &fakeSource{history: map[string][]PricePoint{"bitcoin": {{today, 110}}}}
	svc, store := newTestService(src)

	// seed an accumulated series ending 5 days ago and stale by a week
	seeded := MergeHistory(nil, "BTC", []PricePoint{{today.Add(-5), 90}})
	seeded.Meta.LastUpdated = time.Now().Add(-7 * 24 * time.Hour).UnixMilli()
	store.Set(kvcache.HistoryKey("BTC"), seeded, 0)

	merged, err := svc.FetchPriceHistory(context.Background(), "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if len(src.historyDays) != 1 || src.historyDays[0] != 5 {
		t.Errorf("requested days = %v, want [5]", src.historyDays)
	}
	// old points survive the refresh
	if _, ok := merged.PriceOn(today.Add(-5)); !ok {
		t.Error("seeded point lost in merge")
	}
	if _, ok := merged.PriceOn(today); !ok {
		t.Error("fetched point missing")
	}
}

func TestFetchPriceHistoryPropagatesRateLimit(t *testing.T) {
	src := &fakeSource{historyErr: ErrRateLimited}
	svc, _ := newTestService(src)

	_, err := svc.FetchPriceHistory(context.Background(), "BTC")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestFetchPriceHistoryRateLimitKeepsCachedSeries(t *testing.T) {
	today := Today()
	src := &fakeSource{historyErr: ErrRateLimited}
	svc, store := newTestService(src)

	stale := MergeHistory(nil, "BTC", []PricePoint{{today.Add(-3), 90}})
	stale.Meta.LastUpdated = time.Now().Add(-48 * time.Hour).UnixMilli()
	store.Set(kvcache.HistoryKey("BTC"), stale, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.FetchPriceHistory(context.Background(), "BTC"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	// reading the expired entry must not have deleted it: it is all the
	// rate-limit fallback has left to serve
	var kept PriceHistorySeries
	if !store.GetStale(kvcache.HistoryKey("BTC"), &kept) || kept.Meta.TotalDays != 1 {
		t.Errorf("cached series lost after failed refresh: %+v", kept)
	}
}

func TestFetchPriceHistoryUnsupported(t *testing.T) {
	svc, _ := newTestService(&fakeSource{})
	if _, err := svc.FetchPriceHistory(context.Background(), "NOPE"); !errors.Is(err, ErrUnsupportedCoin) {
		t.Errorf("err = %v, want ErrUnsupportedCoin", err)
	}
}

func TestFetchMultiplePriceHistories(t *testing.T) {
	today := Today()
	src := &fakeSource{history: map[string][]PricePoint{
		"bitcoin":  {{today, 100}},
		"ethereum": {{today, 200}},
	}}
	svc, _ := newTestService(src)

	got := svc.FetchMultiplePriceHistories(context.Background(), []string{"BTC", "ETH", "NOPE"})

	if got["BTC"] == nil || got["ETH"] == nil {
		t.Fatalf("got %v", got)
	}
	if got["NOPE"] != nil {
		t.Error("unsupported coin should map to nil")
	}
	// requests are strictly sequential, in input order
	if len(src.historyCalls) != 2 || src.historyCalls[0] != "bitcoin" || src.historyCalls[1] != "ethereum" {
		t.Errorf("calls = %v", src.historyCalls)
	}
}

func TestFetchMultiplePriceHistoriesStaleFallback(t *testing.T) {
	today := Today()
	src := &fakeSource{historyErr: ErrRateLimited}
	svc, store := newTestService(src)

	// an expired but present series must still be served under a 429
	stale := MergeHistory(nil, "BTC", []PricePoint{{today.Add(-3), 90}})
	stale.Meta.LastUpdated = time.Now().Add(-48 * time.Hour).UnixMilli()
	store.Set(kvcache.HistoryKey("BTC"), stale, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	got := svc.FetchMultiplePriceHistories(context.Background(), []string{"BTC", "ETH"})

	if got["BTC"] == nil || got["BTC"].Meta.TotalDays != 1 {
		t.Errorf("BTC should fall back to the stale series, got %v", got["BTC"])
	}
	if got["ETH"] != nil {
		t.Error("ETH has no cached data and should map to nil")
	}
}
