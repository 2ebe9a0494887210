package coingecko

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/harukit/cryptofolio"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(Config{BaseURL: srv.URL, RequestsPerSec: 1000, Burst: 1000})
	return c, srv
}

func TestCurrentPrices(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "bitcoin,ethereum" || q.Get("vs_currencies") != "jpy" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"bitcoin":{"jpy":9876543.21},"ethereum":{"jpy":456789}}`))
	})
	defer srv.Close()

	got, err := c.CurrentPrices(t.Context(), []string{"bitcoin", "ethereum"}, "JPY")
	if err != nil {
		t.Fatal(err)
	}
	if got["bitcoin"] != 9876543.21 || got["ethereum"] != 456789 {
		t.Errorf("got %v", got)
	}
}

func TestCurrentPricesEmptyIDs(t *testing.T) {
	c := New(Config{BaseURL: "http://invalid.test"})
	got, err := c.CurrentPrices(t.Context(), nil, "jpy")
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestDailyHistory(t *testing.T) {
	day1 := time.Date(2023, 6, 1, 3, 0, 0, 0, time.UTC)
	day1b := time.Date(2023, 6, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 6, 2, 3, 0, 0, 0, time.UTC)

	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("days = %s", got)
		}
		w.Write([]byte(`{"prices":[` +
			`[` + msString(day1) + `,100],` +
			`[` + msString(day1b) + `,110],` +
			`[` + msString(day2) + `,120]]}`))
	})
	defer srv.Close()

	got, err := c.DailyHistory(t.Context(), "bitcoin", "jpy", 7)
	if err != nil {
		t.Fatal(err)
	}
	// two samples on June 1st collapse to one, the later sample wins
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].Date != cryptofolio.NewDate(2023, 6, 1) || got[0].Price != 110 {
		t.Errorf("first point = %+v", got[0])
	}
	if got[1].Date != cryptofolio.NewDate(2023, 6, 2) || got[1].Price != 120 {
		t.Errorf("second point = %+v", got[1])
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, cryptofolio.ErrRateLimited},
		{"access denied", http.StatusForbidden, cryptofolio.ErrAccessDenied},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			defer srv.Close()

			_, err := c.CurrentPrices(t.Context(), []string{"bitcoin"}, "jpy")
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.CurrentPrices(t.Context(), []string{"bitcoin"}, "jpy")
	var serr *cryptofolio.StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusBadGateway {
		t.Errorf("err = %v, want StatusError 502", err)
	}
}

func msString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
