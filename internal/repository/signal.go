package repository

import (
	"context"
	"time"

	"shannon/internal/model"
)

// SignalRepository defines data access for emitted signals using SQL queries only.
// Persistence only, no business rules.
type SignalRepository interface {
	// Create inserts a signal. ID and CreatedAt must be set by the caller.
	Create(ctx context.Context, sig *model.PairSignal) (*model.PairSignal, error)

	// LatestByPair returns the most recent signal for pair.
	// It returns sql.ErrNoRows when the pair has no history.
	LatestByPair(ctx context.Context, pair string) (*model.PairSignal, error)

	// List returns a page of signals, newest first, and the total count for the filter.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.PairSignal], error)

	// DeleteOlderThan removes signals created before cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
