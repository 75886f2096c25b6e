package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shannon/internal/cache"
	"shannon/internal/config"
	"shannon/internal/metrics"
	"shannon/internal/model"
	"shannon/internal/storage"
)

const (
	currentDataTTL  = 60 * time.Second
	historicDataTTL = 6 * time.Minute
	pairsTTL        = 6 * time.Minute
)

// SignalClient serves candles to strategies. Lookups go through two cache
// layers before reaching the exchange: an in-process TTL LRU and a file cache
// kept in a Storage (the local prices directory or an object store).
type SignalClient struct {
	api         *Client
	store       storage.Storage
	interval    model.KlineInterval
	limit       int
	historyDays int
	fileTTL     time.Duration
	now         func() time.Time
	logger      *slog.Logger

	current  *cache.Group[[]model.Candle]
	historic *cache.Group[[]model.Candle]
	pairs    *cache.Group[[]model.SymbolInfo]
}

// NewSignalClient wires the caches around api. store may be nil, which
// disables the file cache.
func NewSignalClient(api *Client, store storage.Storage, bcfg config.BinanceConfig, ccfg config.CacheConfig, m *metrics.Metrics, logger *slog.Logger) *SignalClient {
	if logger == nil {
		logger = slog.Default()
	}
	size := ccfg.MemoryMaxSize
	if size <= 0 {
		size = 256
	}
	currentTTL := currentDataTTL
	if ccfg.MemoryTTLSec > 0 {
		currentTTL = time.Duration(ccfg.MemoryTTLSec) * time.Second
	}

	return &SignalClient{
		api:         api,
		store:       store,
		interval:    bcfg.KlineInterval,
		limit:       bcfg.KlineLimit,
		historyDays: bcfg.HistoryDays,
		fileTTL:     time.Duration(ccfg.FileResultsSec) * time.Second,
		now:         time.Now,
		logger:      logger.With("component", "signal_client"),
		current:     cache.NewGroup[[]model.Candle]("current_klines", size, currentTTL, cache.WithMetrics(m), cache.WithLogger(logger), cache.Quiet()),
		historic:    cache.NewGroup[[]model.Candle]("historic_klines", size, historicDataTTL, cache.WithMetrics(m), cache.WithLogger(logger)),
		pairs:       cache.NewGroup[[]model.SymbolInfo]("pairs", size, pairsTTL, cache.WithMetrics(m), cache.WithLogger(logger)),
	}
}

// CurrentCandles returns the latest limit candles for pair.
func (s *SignalClient) CurrentCandles(ctx context.Context, pair model.Pair) ([]model.Candle, error) {
	return s.current.Do(ctx, string(pair), func(ctx context.Context) ([]model.Candle, error) {
		key := s.currentKey(pair)
		if candles, ok := s.readFile(ctx, key); ok {
			s.logger.Info("using file cache", "pair", pair, "key", key)
			return candles, nil
		}

		s.logger.Info("fetching klines", "pair", pair, "interval", s.interval, "limit", s.limit)
		candles, err := s.api.Klines(ctx, KlineQuery{Symbol: string(pair), Interval: s.interval, Limit: s.limit})
		if err != nil {
			return nil, err
		}
		if s.fileTTL > 0 {
			s.writeFile(ctx, key, candles)
		}
		return candles, nil
	})
}

// HistoricCandles returns every candle since historyDays ago. Downloads are
// always written to the file cache, keyed by day.
func (s *SignalClient) HistoricCandles(ctx context.Context, pair model.Pair) ([]model.Candle, error) {
	return s.historic.Do(ctx, string(pair), func(ctx context.Context) ([]model.Candle, error) {
		key := s.historicKey(pair)
		if candles, ok := s.readFile(ctx, key); ok {
			return candles, nil
		}

		since := s.now().AddDate(0, 0, -s.historyDays)
		s.logger.Info("downloading history", "pair", pair, "interval", s.interval, "since", since.Format(time.DateOnly))
		candles, err := s.api.HistoricalKlines(ctx, string(pair), s.interval, since)
		if err != nil {
			return nil, err
		}
		s.writeFile(ctx, key, candles)
		return candles, nil
	})
}

// Pairs lists exchange symbols quoted in quoteAsset.
func (s *SignalClient) Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error) {
	return s.pairs.Do(ctx, quoteAsset, func(ctx context.Context) ([]model.SymbolInfo, error) {
		return s.api.Pairs(ctx, quoteAsset)
	})
}

// The interval is kept as-is: lower-casing would make 1M (month) collide with 1m (minute).
func (s *SignalClient) currentKey(pair model.Pair) string {
	return fmt.Sprintf("%s_%s.json", strings.ToLower(string(pair)), s.interval)
}

func (s *SignalClient) historicKey(pair model.Pair) string {
	return fmt.Sprintf("%s_%s_%s.json", strings.ToLower(string(pair)), s.now().Format(time.DateOnly), s.interval)
}

// readFile returns cached candles when the object exists and is younger than
// the file ttl. Any failure is treated as a miss.
func (s *SignalClient) readFile(ctx context.Context, key string) ([]model.Candle, bool) {
	if s.store == nil || s.fileTTL <= 0 {
		return nil, false
	}
	info, err := s.store.Stat(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("file cache stat failed", "key", key, "error", err)
		}
		return nil, false
	}
	if s.now().Sub(info.LastModified) >= s.fileTTL {
		return nil, false
	}

	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("file cache read failed", "key", key, "error", err)
		return nil, false
	}
	defer rc.Close()

	var candles []model.Candle
	if err := json.NewDecoder(rc).Decode(&candles); err != nil {
		s.logger.Warn("file cache corrupt", "key", key, "error", err)
		return nil, false
	}
	return candles, true
}

func (s *SignalClient) writeFile(ctx context.Context, key string, candles []model.Candle) {
	if s.store == nil {
		return
	}
	b, err := json.Marshal(candles)
	if err != nil {
		s.logger.Warn("file cache encode failed", "key", key, "error", err)
		return
	}
	if _, err := s.store.Put(ctx, key, bytes.NewReader(b), storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: "application/json",
	}); err != nil {
		s.logger.Warn("file cache write failed", "key", key, "error", err)
	}
}
