package binance

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrInvalidResponse is returned when a successful response cannot be decoded.
var ErrInvalidResponse = errors.New("invalid exchange response")

// APIError is a non-2xx reply from the exchange.
type APIError struct {
	Status     int
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("binance: http %d", e.Status)
	}
	return fmt.Sprintf("binance: http %d: code %d: %s", e.Status, e.Code, e.Msg)
}

// Retryable reports whether the request may succeed when repeated: rate
// limiting (429), an IP ban warning (418) or a server side failure.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusTeapot ||
		e.Status >= http.StatusInternalServerError
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
