package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"shannon/internal/cache"
	"shannon/internal/indicator"
	"shannon/internal/model"
)

const (
	sma50Window       = 50
	volumeAvgWindow   = 20
	defaultRSILength  = 12
	defaultBandPct    = 3.0
	defaultParallel   = 5
	defaultTaskMaxLen = 1024
)

// DefaultTaskTTL is how long a finished pair check is shared between scans.
const DefaultTaskTTL = 30 * time.Second

var tracer = otel.Tracer("shannon/strategy")

// pairChecks coalesces identical pair checks across every DCAStrategy in the
// process, so overlapping scans (CLI and HTTP, or two HTTP requests) share work.
var pairChecks = cache.NewGroup[*model.PairSignal]("dca_pair_checks", defaultTaskMaxLen, DefaultTaskTTL, cache.Quiet())

// DCAStrategy flags pairs trading near the low of the observed window as buys
// and pairs near the high as sells.
type DCAStrategy struct {
	data      MarketData
	sem       *semaphore.Weighted
	rsiLength int
	bandPct   float64
	tasks     *cache.Group[*model.PairSignal]
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a DCAStrategy.
type Option func(*DCAStrategy)

// WithMaxParallelRequests bounds how many pairs are evaluated at once.
func WithMaxParallelRequests(n int) Option {
	return func(s *DCAStrategy) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRSILength sets the RSI lookback.
func WithRSILength(n int) Option {
	return func(s *DCAStrategy) {
		if n > 0 {
			s.rsiLength = n
		}
	}
}

// WithBandPct sets how close to the low/high, in percent, a price must be.
func WithBandPct(p float64) Option {
	return func(s *DCAStrategy) { s.bandPct = p }
}

// WithTaskCache replaces the process-wide pair check cache.
func WithTaskCache(g *cache.Group[*model.PairSignal]) Option {
	return func(s *DCAStrategy) { s.tasks = g }
}

// WithClock overrides the clock used to stamp metadata dates.
func WithClock(now func() time.Time) Option {
	return func(s *DCAStrategy) { s.now = now }
}

// WithLogger sets the strategy logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *DCAStrategy) { s.logger = l }
}

// NewDCAStrategy creates a strategy reading candles from data.
func NewDCAStrategy(data MarketData, opts ...Option) *DCAStrategy {
	s := &DCAStrategy{
		data:      data,
		sem:       semaphore.NewWeighted(defaultParallel),
		rsiLength: defaultRSILength,
		bandPct:   defaultBandPct,
		tasks:     pairChecks,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "DCAStrategy")
	return s
}

var _ SignalStrategy = (*DCAStrategy)(nil)

// CheckSignals evaluates every pair concurrently and returns the signals in
// completion order. A pair that fails is logged and skipped; only context
// cancellation fails the whole scan.
func (s *DCAStrategy) CheckSignals(ctx context.Context, pairs []model.Pair) ([]model.PairSignal, error) {
	ctx, span := tracer.Start(ctx, "dca.check_signals")
	defer span.End()
	span.SetAttributes(attribute.Int("pairs", len(pairs)))

	results := make(chan model.PairSignal, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range pairs {
		g.Go(func() error {
			sig, err := s.checkPair(gctx, pair)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("pair check failed", "pair", pair, "error", err)
				return nil
			}
			if sig != nil {
				results <- *sig
			}
			return nil
		})
	}

	err := g.Wait()
	close(results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	signals := make([]model.PairSignal, 0, len(results))
	for sig := range results {
		signals = append(signals, sig)
	}
	span.SetAttributes(attribute.Int("signals", len(signals)))
	return signals, nil
}

func (s *DCAStrategy) checkPair(ctx context.Context, pair model.Pair) (*model.PairSignal, error) {
	key := fmt.Sprintf("%s|%d|%g", pair, s.rsiLength, s.bandPct)
	return s.tasks.Do(ctx, key, func(ctx context.Context) (*model.PairSignal, error) {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.sem.Release(1)

		candles, err := s.data.CurrentCandles(ctx, pair)
		if err != nil {
			return nil, err
		}
		return s.Evaluate(pair, candles), nil
	})
}

// Evaluate applies the DCA rules to a candle series, oldest first. It returns
// nil when the series is empty or the price is in neither band.
func (s *DCAStrategy) Evaluate(pair model.Pair, candles []model.Candle) *model.PairSignal {
	series := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		if !c.Empty() {
			series = append(series, c)
		}
	}
	if len(series) == 0 {
		return nil
	}

	n := len(series)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	data := make([]model.PairSignalData, n)
	for i, c := range series {
		closes[i] = c.Close
		volumes[i] = c.Volume
		data[i] = model.PairSignalData{CloseTime: c.CloseTime, ClosePrice: c.Close}
	}

	rsi := indicator.Last(indicator.RSI(closes, s.rsiLength))
	sma50 := indicator.Last(indicator.SMA(closes, sma50Window))
	volumeAvg := indicator.Last(indicator.SMA(volumes, volumeAvgWindow))

	maxIdx := indicator.ArgMax(closes)
	minIdx := indicator.ArgMin(closes)
	current := closes[n-1]
	highest := closes[maxIdx]
	lowest := closes[minIdx]

	pctFromHigh := indicator.PctChange(current, highest)
	pctFromLow := indicator.PctChange(current, lowest)
	pctFromSMA50 := indicator.PctChange(current, sma50)

	meta := model.PairSignalMetadata{
		DaysSinceHighestPrice: n - maxIdx,
		DaysSinceLowestPrice:  n - minIdx,
		PctDiffFromSMA50:      finiteOr(pctFromSMA50, 0),
		Data:                  data,
		PctDiffFromHigh:       finiteOr(pctFromHigh, 0),
		PctDiffFromLow:        finiteOr(pctFromLow, 0),
		VolumeAboveAvg:        !math.IsNaN(volumeAvg) && volumes[n-1] > volumeAvg,
		HighestPrice:          highest,
		LowestPrice:           lowest,
		DaysCount:             n,
		Date:                  s.now().Format(time.DateTime),
	}

	sig := &model.PairSignal{
		Pair:       string(pair),
		ClosePrice: current,
		RSI:        finiteOr(rsi, -1),
		Metadata:   meta,
	}

	switch {
	case current <= lowest || meta.PctDiffFromLow < s.bandPct:
		s.logger.Info("buy signal", "pair", pair, "min_close_price", lowest, "current_close_price", current)
		sig.ShouldBuy = true
	case current >= highest || meta.PctDiffFromHigh > -s.bandPct:
		s.logger.Info("sell signal", "pair", pair, "max_close_price", highest, "current_close_price", current)
		sig.ShouldSell = true
	default:
		return nil
	}
	return sig
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
