package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"shannon/internal/model"
	"shannon/internal/repository"
	repoMocks "shannon/internal/repository/mocks"
	"shannon/internal/storage"
	storeMocks "shannon/internal/storage/mocks"
	strategyMocks "shannon/internal/strategy/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	quote string
	items []model.SymbolInfo
	err   error
}

func (l *stubLister) Pairs(_ context.Context, quote string) ([]model.SymbolInfo, error) {
	l.quote = quote
	return l.items, l.err
}

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestSignalService_Scan(t *testing.T) {
	ctx := context.Background()
	defaults := []model.Pair{"BTCUSDT", "ETHUSDT"}

	tests := []struct {
		name       string
		pairs      []model.Pair
		withRepo   bool
		withStore  bool
		setupMocks func(st *strategyMocks.MockSignalStrategy, r *repoMocks.MockSignalRepository, s *storeMocks.MockStorage)
		wantLen    int
		wantKey    bool
		wantErrMsg string
	}{
		{
			name: "defaults without persistence",
			setupMocks: func(st *strategyMocks.MockSignalStrategy, _ *repoMocks.MockSignalRepository, _ *storeMocks.MockStorage) {
				st.On("CheckSignals", mock.Anything, defaults).
					Return([]model.PairSignal{{Pair: "BTCUSDT", ShouldBuy: true}}, nil)
			},
			wantLen: 1,
		},
		{
			name:      "explicit pairs persisted and archived",
			pairs:     []model.Pair{"SOLUSDT"},
			withRepo:  true,
			withStore: true,
			setupMocks: func(st *strategyMocks.MockSignalStrategy, r *repoMocks.MockSignalRepository, s *storeMocks.MockStorage) {
				st.On("CheckSignals", mock.Anything, []model.Pair{"SOLUSDT"}).
					Return([]model.PairSignal{{Pair: "SOLUSDT", ShouldSell: true}}, nil)
				r.On("Create", mock.Anything, mock.MatchedBy(func(sig *model.PairSignal) bool {
					return sig.ID != "" && sig.CreatedAt.Equal(fixedNow) && sig.Pair == "SOLUSDT"
				})).Return(&model.PairSignal{}, nil)
				s.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "reports/2024-03-09/") && strings.HasSuffix(key, ".json")
				}), mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
					return o.ContentType == "application/json" && o.Metadata["signals"] == "1"
				})).Return(func(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
					var report ScanReport
					_ = json.NewDecoder(r).Decode(&report)
					return storage.ObjectInfo{Key: key, Size: int64(len(report.Signals))}
				}, nil)
			},
			wantLen: 1,
			wantKey: true,
		},
		{
			name:      "archive failure is not fatal",
			withStore: true,
			setupMocks: func(st *strategyMocks.MockSignalStrategy, _ *repoMocks.MockSignalRepository, s *storeMocks.MockStorage) {
				st.On("CheckSignals", mock.Anything, defaults).Return([]model.PairSignal{}, nil)
				s.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("bucket gone"))
			},
			wantLen: 0,
		},
		{
			name:     "persist error",
			withRepo: true,
			setupMocks: func(st *strategyMocks.MockSignalStrategy, r *repoMocks.MockSignalRepository, _ *storeMocks.MockStorage) {
				st.On("CheckSignals", mock.Anything, defaults).
					Return([]model.PairSignal{{Pair: "BTCUSDT", ShouldBuy: true}}, nil)
				r.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			wantErrMsg: "persist signal BTCUSDT: db down",
		},
		{
			name: "strategy error",
			setupMocks: func(st *strategyMocks.MockSignalStrategy, _ *repoMocks.MockSignalRepository, _ *storeMocks.MockStorage) {
				st.On("CheckSignals", mock.Anything, defaults).Return(nil, context.Canceled)
			},
			wantErrMsg: "check signals: context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStrat := new(strategyMocks.MockSignalStrategy)
			mRepo := new(repoMocks.MockSignalRepository)
			mStore := new(storeMocks.MockStorage)
			tt.setupMocks(mStrat, mRepo, mStore)

			opts := []Option{WithClock(clock)}
			if tt.withRepo {
				opts = append(opts, WithRepository(mRepo))
			}
			if tt.withStore {
				opts = append(opts, WithArchive(mStore))
			}
			svc := NewSignalService(mStrat, nil, defaults, opts...)

			got, err := svc.Scan(ctx, tt.pairs)

			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, got.ID)
				assert.Len(t, got.Signals, tt.wantLen)
				assert.Equal(t, tt.wantKey, got.ReportKey != "")
				for _, sig := range got.Signals {
					assert.NotEmpty(t, sig.ID)
					assert.Equal(t, fixedNow, sig.CreatedAt)
				}
			}
			mStrat.AssertExpectations(t)
			mRepo.AssertExpectations(t)
			mStore.AssertExpectations(t)
		})
	}
}

func TestSignalService_History(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		pair       string
		limit      int
		offset     int
		noRepo     bool
		setupMocks func(r *repoMocks.MockSignalRepository)
		wantTotal  int
		wantErr    error
	}{
		{
			name:  "defaults applied",
			pair:  " btcusdt ",
			limit: 0, offset: -5,
			setupMocks: func(r *repoMocks.MockSignalRepository) {
				r.On("List", ctx, repository.PageQuery{Pair: "BTCUSDT", Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.PairSignal]{Items: []model.PairSignal{{Pair: "BTCUSDT"}}, Total: 1}, nil)
			},
			wantTotal: 1,
		},
		{
			name:  "limit capped",
			limit: 1000, offset: 20,
			setupMocks: func(r *repoMocks.MockSignalRepository) {
				r.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 20}).
					Return(&repository.PageResult[model.PairSignal]{Total: 42}, nil)
			},
			wantTotal: 42,
		},
		{
			name:    "disabled",
			noRepo:  true,
			wantErr: ErrHistoryDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockSignalRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(mRepo)
			}
			var opts []Option
			if !tt.noRepo {
				opts = append(opts, WithRepository(mRepo))
			}
			svc := NewSignalService(new(strategyMocks.MockSignalStrategy), nil, nil, opts...)

			got, err := svc.History(ctx, tt.pair, tt.limit, tt.offset)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, got.Total)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestSignalService_Latest(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		pair       string
		setupMocks func(r *repoMocks.MockSignalRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "found",
			pair: "ethusdt",
			setupMocks: func(r *repoMocks.MockSignalRepository) {
				r.On("LatestByPair", ctx, "ETHUSDT").Return(&model.PairSignal{ID: "1", Pair: "ETHUSDT"}, nil)
			},
		},
		{
			name: "not found",
			pair: "ETHUSDT",
			setupMocks: func(r *repoMocks.MockSignalRepository) {
				r.On("LatestByPair", ctx, "ETHUSDT").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "repository error",
			pair: "ETHUSDT",
			setupMocks: func(r *repoMocks.MockSignalRepository) {
				r.On("LatestByPair", ctx, "ETHUSDT").Return(nil, errors.New("timeout"))
			},
			wantErrMsg: "timeout",
		},
		{
			name:    "pair required",
			pair:    "  ",
			wantErr: ErrPairRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockSignalRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(mRepo)
			}
			svc := NewSignalService(new(strategyMocks.MockSignalStrategy), nil, nil, WithRepository(mRepo))

			got, err := svc.Latest(ctx, tt.pair)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "1", got.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestSignalService_Pairs(t *testing.T) {
	ctx := context.Background()

	t.Run("default quote", func(t *testing.T) {
		lister := &stubLister{items: []model.SymbolInfo{{Symbol: "BTCUSDT", QuoteAsset: "USDT"}}}
		svc := NewSignalService(new(strategyMocks.MockSignalStrategy), lister, nil)

		got, err := svc.Pairs(ctx, "")

		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "USDT", lister.quote)
	})

	t.Run("quote upper-cased", func(t *testing.T) {
		lister := &stubLister{}
		svc := NewSignalService(new(strategyMocks.MockSignalStrategy), lister, nil)

		_, err := svc.Pairs(ctx, "btc")

		require.NoError(t, err)
		assert.Equal(t, "BTC", lister.quote)
	})

	t.Run("unavailable", func(t *testing.T) {
		svc := NewSignalService(new(strategyMocks.MockSignalStrategy), nil, nil)

		_, err := svc.Pairs(ctx, "USDT")

		assert.ErrorIs(t, err, ErrPairsUnavailable)
	})
}

func TestSignalService_Prune(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes older rows", func(t *testing.T) {
		mRepo := new(repoMocks.MockSignalRepository)
		mRepo.On("DeleteOlderThan", ctx, fixedNow.Add(-24*time.Hour)).Return(int64(3), nil)
		svc := NewSignalService(new(strategyMocks.MockSignalStrategy), nil, nil, WithRepository(mRepo), WithClock(clock))

		n, err := svc.Prune(ctx, 24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		mRepo.AssertExpectations(t)
	})

	t.Run("disabled", func(t *testing.T) {
		svc := NewSignalService(new(strategyMocks.MockSignalStrategy), nil, nil)

		_, err := svc.Prune(ctx, time.Hour)

		assert.ErrorIs(t, err, ErrHistoryDisabled)
	})
}
