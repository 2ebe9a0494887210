package cryptofolio

import (
	"fmt"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
)

/*
	{
	    "product_code": "BTC_JPY",
	    "state": "RUNNING",
	    "timestamp": "2024-02-13T02:40:00.12",
	    "best_bid": 7633210.0,
	    "best_ask": 7633976.0,
	    "ltp": 7633500.0,
	    ...
	}
*/

// bitflyerBase is the public (unauthenticated) ticker endpoint.
var bitflyerBase = "https://api.bitflyer.com/v1/ticker"

// bitflyerListed holds the JPY spot pairs bitFlyer actually quotes; asking
// for anything else is a guaranteed 404.
var bitflyerListed = map[string]bool{
	"BTC": true, "ETH": true, "XRP": true, "BCH": true,
	"LTC": true, "MONA": true, "XLM": true, "ETC": true,
}

// BitflyerSpotJPY returns the last traded JPY price of a coin from the
// bitFlyer public ticker. It is a best-effort intraday fallback for when the
// main price source is rate limited; only coins listed on bitFlyer resolve.
func BitflyerSpotJPY(coin string) (float64, error) {
	coin = NormalizeCoin(coin)
	if !bitflyerListed[coin] {
		return 0, fmt.Errorf("%w: %s is not listed on bitflyer", ErrUnsupportedCoin, coin)
	}
	addr := fmt.Sprintf("%s?product_code=%s_JPY", bitflyerBase, coin)

	var jobj any
	if err := jwget(new(http.Client), addr, &jobj); err != nil {
		return 0, fmt.Errorf("error reading bitflyer ticker for %q: %w", coin, err)
	}

	jval, err := jsonpath.Get("$.ltp", jobj)
	if err != nil {
		return 0, fmt.Errorf("no last traded price in bitflyer ticker for %q: %w", coin, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	price, ok := jval.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected last traded price %v in bitflyer ticker for %q", jval, coin)
	}
	return price, nil
}
