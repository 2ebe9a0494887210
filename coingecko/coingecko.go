// Package coingecko implements the remote price source on top of the
// CoinGecko HTTP API: batched current spot prices and per-coin daily history,
// both in a caller-chosen target currency.
//
// The free tier is aggressively rate limited, so every request goes through a
// local limiter, and HTTP 429 / 403 are mapped to distinct errors the fetch
// orchestrator bases its degrade policy on.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/harukit/cryptofolio"
)

// DefaultBaseURL is the public CoinGecko API endpoint.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Config tunes the client. The rate numbers are configuration, not contract:
// they default to values safe for the free tier.
type Config struct {
	BaseURL        string
	APIKey         string        // optional, sent as the pro API key header when set
	RequestsPerSec float64       // local request limiter, default 0.5
	Burst          int           // limiter burst, default 1
	Timeout        time.Duration // per-request timeout, default 10s
}

// Client talks to the CoinGecko API.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a client from a config, filling in defaults for zero fields.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 0.5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
	}
}

// CurrentPrices fetches the spot price of the given coin ids in one batched
// request and returns them keyed by coin id.
func (c *Client) CurrentPrices(ctx context.Context, ids []string, currency string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	currency = strings.ToLower(currency)
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", currency)

	// {"bitcoin": {"jpy": 9876543.21}, ...}
	var body map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &body); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(body))
	for id, quotes := range body {
		price, ok := quotes[currency]
		if !ok {
			slog.Warn("coingecko: no quote in response", "id", id, "currency", currency)
			continue
		}
		prices[id] = price
	}
	return prices, nil
}

// DailyHistory fetches up to days daily closing prices for one coin id. The
// result holds at most one point per calendar day, ascending.
func (c *Client) DailyHistory(ctx context.Context, id, currency string, days int) ([]cryptofolio.PricePoint, error) {
	params := url.Values{}
	params.Set("vs_currency", strings.ToLower(currency))
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", "daily")

	// {"prices": [[1700000000000, 5123456.7], ...], ...}
	var body struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params, &body); err != nil {
		return nil, err
	}

	// Collapse to one point per calendar day, the last sample of a day wins.
	var points []cryptofolio.PricePoint
	for _, p := range body.Prices {
		day := cryptofolio.DateOf(time.UnixMilli(int64(p[0])))
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].Price = p[1]
			continue
		}
		points = append(points, cryptofolio.PricePoint{Date: day, Price: p[1]})
	}
	return points, nil
}

// get performs a rate-limited JSON GET against the API and maps failure
// statuses to the error taxonomy.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return mapRequestErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return mapRequestErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: %w", endpoint, cryptofolio.ErrRateLimited)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("GET %s: %w", endpoint, cryptofolio.ErrAccessDenied)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: %w", endpoint, &cryptofolio.StatusError{Code: resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("GET %s: cannot decode response: %w", endpoint, err)
	}
	return nil
}

// mapRequestErr converts transport-level failures. A deadline hit (the
// caller's timeout, or this client's own) surfaces as the timeout error.
func mapRequestErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", cryptofolio.ErrTimeout, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", cryptofolio.ErrTimeout, err)
	}
	return err
}

// The client is the production implementation of the orchestrator's source.
var _ cryptofolio.Source = (*Client)(nil)
