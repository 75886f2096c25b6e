// Package strategy turns candle series into buy/sell signals.
package strategy

import (
	"context"

	"shannon/internal/model"
)

// SignalStrategy scans pairs and returns the signals it found.
type SignalStrategy interface {
	CheckSignals(ctx context.Context, pairs []model.Pair) ([]model.PairSignal, error)
}

// MarketData supplies the candle series a strategy evaluates.
type MarketData interface {
	CurrentCandles(ctx context.Context, pair model.Pair) ([]model.Candle, error)
}
