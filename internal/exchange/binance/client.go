// Package binance is a read-only client for the Binance spot market data REST
// API, plus SignalClient which layers in-memory and file caches on top of it.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"shannon/internal/config"
	"shannon/internal/metrics"
	"shannon/internal/model"
)

// MaxKlinesPerRequest is the largest page the klines endpoint returns.
const MaxKlinesPerRequest = 1000

const (
	endpointKlines       = "klines"
	endpointExchangeInfo = "exchange_info"
)

var tracer trace.Tracer = otel.Tracer("shannon/exchange/binance")

// Client issues throttled, retried REST calls against the exchange.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithBackoff sets the initial and maximum retry delay.
func WithBackoff(base, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = maxDelay
	}
}

// NewClient builds a client from cfg.
func NewClient(cfg config.BinanceConfig, opts ...ClientOption) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "binance")
	return c
}

// KlineQuery selects a window of candles.
type KlineQuery struct {
	Symbol    string
	Interval  model.KlineInterval
	Limit     int
	StartTime time.Time
	EndTime   time.Time
}

// Klines fetches one page of candles, oldest first.
func (c *Client) Klines(ctx context.Context, q KlineQuery) ([]model.Candle, error) {
	if q.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", string(q.Interval))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.StartTime.IsZero() {
		params.Set("startTime", strconv.FormatInt(q.StartTime.UnixMilli(), 10))
	}
	if !q.EndTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}

	var rows [][]json.RawMessage
	if err := c.get(ctx, endpointKlines, "/api/v3/klines", params, &rows); err != nil {
		return nil, fmt.Errorf("klines %s: %w", q.Symbol, err)
	}
	candles, err := parseKlines(rows)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", q.Symbol, err)
	}
	return candles, nil
}

// HistoricalKlines pages through every candle opened at or after since.
func (c *Client) HistoricalKlines(ctx context.Context, symbol string, interval model.KlineInterval, since time.Time) ([]model.Candle, error) {
	var out []model.Candle
	start := since
	for {
		page, err := c.Klines(ctx, KlineQuery{
			Symbol:    symbol,
			Interval:  interval,
			Limit:     MaxKlinesPerRequest,
			StartTime: start,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < MaxKlinesPerRequest {
			return out, nil
		}
		next := time.UnixMilli(page[len(page)-1].OpenTime + 1)
		if !next.After(start) {
			return out, nil
		}
		start = next
	}
}

type exchangeInfo struct {
	Symbols []model.SymbolInfo `json:"symbols"`
}

// ExchangeInfo lists every symbol on the exchange.
func (c *Client) ExchangeInfo(ctx context.Context) ([]model.SymbolInfo, error) {
	var info exchangeInfo
	if err := c.get(ctx, endpointExchangeInfo, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	return info.Symbols, nil
}

// Pairs returns the symbols quoted in quoteAsset, sorted by symbol.
func (c *Client) Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error) {
	symbols, err := c.ExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByQuote(symbols, quoteAsset), nil
}

// FilterByQuote keeps the symbols quoted in quoteAsset, sorted by symbol.
func FilterByQuote(symbols []model.SymbolInfo, quoteAsset string) []model.SymbolInfo {
	out := make([]model.SymbolInfo, 0)
	for _, s := range symbols {
		if s.QuoteAsset == quoteAsset {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	ctx, span := tracer.Start(ctx, "binance."+endpoint, trace.WithAttributes(
		attribute.String("binance.path", path),
		attribute.String("binance.symbol", params.Get("symbol")),
	))
	defer span.End()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			var retryAfter time.Duration
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) {
				retryAfter = apiErr.RetryAfter
			}
			delay := backoff(attempt, c.baseDelay, c.maxDelay, retryAfter)
			c.logger.Warn("retrying exchange request",
				"endpoint", endpoint,
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}

		retry, err := c.do(ctx, endpoint, u, out)
		if err == nil {
			span.SetAttributes(attribute.Int("binance.attempts", attempt+1))
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return lastErr
}

// do performs a single round trip. The bool result reports whether a failure
// may be retried.
func (c *Client) do(ctx context.Context, endpoint, u string, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ExchangeRequest(endpoint, 0, time.Since(start))
		return true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ExchangeRequest(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return true, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		_ = json.Unmarshal(body, apiErr)
		return apiErr.Retryable(), apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return false, nil
}
