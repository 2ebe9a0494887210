package cryptofolio

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBitflyerSpotJPY(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("product_code"); got != "BTC_JPY" {
			t.Errorf("product_code = %s", got)
		}
		w.Write([]byte(`{"product_code":"BTC_JPY","state":"RUNNING","ltp":7633500.0}`))
	}))
	defer srv.Close()

	old := bitflyerBase
	bitflyerBase = srv.URL
	defer func() { bitflyerBase = old }()

	price, err := BitflyerSpotJPY("btc")
	if err != nil {
		t.Fatal(err)
	}
	if price != 7633500 {
		t.Errorf("price = %f", price)
	}
}

func TestBitflyerSpotJPYUnlisted(t *testing.T) {
	_, err := BitflyerSpotJPY("DOGE")
	if !errors.Is(err, ErrUnsupportedCoin) {
		t.Errorf("err = %v, want ErrUnsupportedCoin", err)
	}
}
