package mocks

import (
	"context"
	"time"

	"shannon/internal/model"
	"shannon/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockSignalService struct {
	mock.Mock
}

func (m *MockSignalService) Scan(ctx context.Context, pairs []model.Pair) (*service.ScanReport, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScanReport), args.Error(1)
}

func (m *MockSignalService) History(ctx context.Context, pair string, limit, offset int) (*service.SignalListResult, error) {
	args := m.Called(ctx, pair, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignalListResult), args.Error(1)
}

func (m *MockSignalService) Latest(ctx context.Context, pair string) (*model.PairSignal, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairSignal), args.Error(1)
}

func (m *MockSignalService) Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error) {
	args := m.Called(ctx, quoteAsset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SymbolInfo), args.Error(1)
}

func (m *MockSignalService) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}
