package mocks

import (
	"context"

	"shannon/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockSignalStrategy struct {
	mock.Mock
}

func (m *MockSignalStrategy) CheckSignals(ctx context.Context, pairs []model.Pair) ([]model.PairSignal, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairSignal), args.Error(1)
}
