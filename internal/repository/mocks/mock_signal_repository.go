package mocks

import (
	"context"
	"time"

	"shannon/internal/model"
	"shannon/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockSignalRepository struct {
	mock.Mock
}

func (m *MockSignalRepository) Create(ctx context.Context, sig *model.PairSignal) (*model.PairSignal, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairSignal), args.Error(1)
}

func (m *MockSignalRepository) LatestByPair(ctx context.Context, pair string) (*model.PairSignal, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairSignal), args.Error(1)
}

func (m *MockSignalRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.PairSignal], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.PairSignal]), args.Error(1)
}

func (m *MockSignalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
