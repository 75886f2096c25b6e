package binance

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shannon/internal/config"
	"shannon/internal/model"
	"shannon/internal/storage"
)

type countingHandler struct {
	klines atomic.Int32
	info   atomic.Int32
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v3/klines":
		h.klines.Add(1)
		fmt.Fprint(w, klinesBody(klineRow(1000, 10), klineRow(2000, 11)))
	case "/api/v3/exchangeInfo":
		h.info.Add(1)
		fmt.Fprint(w, `{"symbols":[{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"}]}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestSignalClient(t *testing.T, h http.Handler, store storage.Storage, fileSec int) *SignalClient {
	t.Helper()
	api := newTestClient(t, h)
	return NewSignalClient(api, store,
		config.BinanceConfig{KlineInterval: model.Interval1Day, KlineLimit: 360, HistoryDays: 30},
		config.CacheConfig{FileResultsSec: fileSec, MemoryTTLSec: 60, MemoryMaxSize: 16},
		nil, nil,
	)
}

func TestSignalClient_CurrentCandles_MemoryCache(t *testing.T) {
	h := &countingHandler{}
	sc := newTestSignalClient(t, h, nil, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		candles, err := sc.CurrentCandles(ctx, "BTCUSDT")
		require.NoError(t, err)
		assert.Len(t, candles, 2)
	}
	assert.Equal(t, int32(1), h.klines.Load())
}

func TestSignalClient_CurrentCandles_FileCache(t *testing.T) {
	h := &countingHandler{}
	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := newTestSignalClient(t, h, store, 60)
	_, err = first.CurrentCandles(ctx, "BTCUSDT")
	require.NoError(t, err)

	_, err = store.Stat(ctx, "btcusdt_1d.json")
	require.NoError(t, err)

	// A fresh client has an empty memory cache but finds the file.
	second := newTestSignalClient(t, h, store, 60)
	candles, err := second.CurrentCandles(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.Equal(t, 11.0, candles[1].Close)
	assert.Equal(t, int32(1), h.klines.Load())
}

func TestSignalClient_CurrentCandles_StaleFile(t *testing.T) {
	h := &countingHandler{}
	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := newTestSignalClient(t, h, store, 60)
	_, err = first.CurrentCandles(ctx, "BTCUSDT")
	require.NoError(t, err)

	second := newTestSignalClient(t, h, store, 60)
	second.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = second.CurrentCandles(ctx, "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, int32(2), h.klines.Load())
}

func TestSignalClient_FileCacheDisabled(t *testing.T) {
	h := &countingHandler{}
	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)

	sc := newTestSignalClient(t, h, store, 0)
	_, err = sc.CurrentCandles(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	_, err = store.Stat(context.Background(), "btcusdt_1d.json")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestSignalClient_HistoricCandles(t *testing.T) {
	h := &countingHandler{}
	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	sc := newTestSignalClient(t, h, store, 60)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sc.now = func() time.Time { return fixed }

	candles, err := sc.HistoricCandles(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Len(t, candles, 2)

	_, err = store.Stat(ctx, "ethusdt_2024-03-01_1d.json")
	assert.NoError(t, err)
}

func TestSignalClient_Pairs(t *testing.T) {
	h := &countingHandler{}
	sc := newTestSignalClient(t, h, nil, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		pairs, err := sc.Pairs(ctx, "USDT")
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	}
	assert.Equal(t, int32(1), h.info.Load())
}
