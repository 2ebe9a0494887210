package cryptofolio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the price source boundary. Callers rely on errors.Is to
// pick the degrade policy: a rate limit is recoverable (stale cache, partial
// result), everything else is reported per coin.
var (
	// ErrUnsupportedCoin reports a coin with no known mapping to the remote
	// price source. It is returned before any network call is made.
	ErrUnsupportedCoin = errors.New("unsupported coin")

	// ErrRateLimited reports an HTTP 429 from the remote price source.
	ErrRateLimited = errors.New("price source rate limit exceeded")

	// ErrAccessDenied reports an HTTP 403 from the remote price source.
	ErrAccessDenied = errors.New("price source access denied")

	// ErrTimeout reports a request that exceeded its configured timeout.
	ErrTimeout = errors.New("price source request timed out")
)

// StatusError reports a non-2xx response from the remote price source that is
// not covered by a sentinel above.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("price source returned HTTP %d", e.Code)
}
