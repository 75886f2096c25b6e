package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shannon/internal/http/middleware"
	"shannon/internal/model"
	"shannon/internal/service"
	serviceMocks "shannon/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("no database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "disabled", body["database"])
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScanSignals(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setupMock  func(m *serviceMocks.MockSignalService)
		wantStatus int
		wantCode   string
		wantLen    int
	}{
		{
			name:  "default universe",
			query: "",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Scan", mock.Anything, []model.Pair(nil)).Return(&service.ScanReport{
					ID:      "scan-1",
					Signals: []model.PairSignal{{Pair: "BTCUSDT", ShouldBuy: true}},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantLen:    1,
		},
		{
			name:  "explicit pairs normalized",
			query: "?pairs=btcusdt,%20ethusdt,",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Scan", mock.Anything, []model.Pair{"BTCUSDT", "ETHUSDT"}).
					Return(&service.ScanReport{ID: "scan-2"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid pair",
			query:      "?pairs=BTC-USDT",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAIR",
		},
		{
			name:  "timeout",
			query: "?pairs=BTCUSDT",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Scan", mock.Anything, []model.Pair{"BTCUSDT"}).Return(nil, context.DeadlineExceeded)
			},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
		},
		{
			name:  "internal error",
			query: "?pairs=BTCUSDT",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Scan", mock.Anything, []model.Pair{"BTCUSDT"}).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockSignalService)
			if tt.setupMock != nil {
				tt.setupMock(mockSvc)
			}
			app := fiber.New()
			app.Get("/signals", ScanSignals(mockSvc))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/signals"+tt.query, nil), -1)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			} else {
				var report service.ScanReport
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
				assert.Len(t, report.Signals, tt.wantLen)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestSignalHistory(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setupMock  func(m *serviceMocks.MockSignalService)
		wantStatus int
		wantCode   string
	}{
		{
			name:  "success",
			query: "?pair=btcusdt&limit=5&offset=10",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("History", mock.Anything, "BTCUSDT", 5, 10).
					Return(&service.SignalListResult{Items: []model.PairSignal{{Pair: "BTCUSDT"}}, Total: 11}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid limit",
			query:      "?limit=abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_LIMIT",
		},
		{
			name:       "invalid offset",
			query:      "?offset=abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_OFFSET",
		},
		{
			name:       "invalid pair",
			query:      "?pair=btc_usdt",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAIR",
		},
		{
			name: "history disabled",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("History", mock.Anything, "", 10, 0).Return(nil, service.ErrHistoryDisabled)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "HISTORY_DISABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockSignalService)
			if tt.setupMock != nil {
				tt.setupMock(mockSvc)
			}
			app := fiber.New()
			app.Get("/signals/history", SignalHistory(mockSvc))

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/signals/history"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			} else {
				var res service.SignalListResult
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				assert.Equal(t, 11, res.Total)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestLatestSignal(t *testing.T) {
	tests := []struct {
		name       string
		pair       string
		setupMock  func(m *serviceMocks.MockSignalService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			pair: "ethusdt",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Latest", mock.Anything, "ETHUSDT").
					Return(&model.PairSignal{ID: "sig-1", Pair: "ETHUSDT", ShouldSell: true}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not found",
			pair: "ETHUSDT",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Latest", mock.Anything, "ETHUSDT").Return(nil, service.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "invalid pair",
			pair:       "E",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAIR",
		},
		{
			name: "internal error",
			pair: "ETHUSDT",
			setupMock: func(m *serviceMocks.MockSignalService) {
				m.On("Latest", mock.Anything, "ETHUSDT").Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockSignalService)
			if tt.setupMock != nil {
				tt.setupMock(mockSvc)
			}
			app := fiber.New()
			app.Get("/signals/:pair/latest", LatestSignal(mockSvc))

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/signals/"+tt.pair+"/latest", nil))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			} else {
				var sig model.PairSignal
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&sig))
				assert.Equal(t, "sig-1", sig.ID)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestListPairs(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockSignalService)
		mockSvc.On("Pairs", mock.Anything, "BTC").
			Return([]model.SymbolInfo{{Symbol: "ETHBTC", QuoteAsset: "BTC"}}, nil)
		app := fiber.New()
		app.Get("/pairs", ListPairs(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/pairs?quote=BTC", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Data  []model.SymbolInfo `json:"data"`
			Total int                `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, "ETHBTC", body.Data[0].Symbol)
	})

	t.Run("exchange error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockSignalService)
		mockSvc.On("Pairs", mock.Anything, "USDT").Return(nil, errors.New("429"))
		app := fiber.New()
		app.Get("/pairs", ListPairs(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/pairs", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "EXCHANGE_ERROR", decodeError(t, resp).Error.Code)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	app.Use(middleware.RequestID())

	mockSvc := new(serviceMocks.MockSignalService)
	RegisterRoutes(app, nil, mockSvc, prometheus.NewRegistry())

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		req.Header.Set(middleware.RequestIDHeader, "rid-1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		assert.Equal(t, "rid-1", res.RequestID)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("scan responses are not cached", func(t *testing.T) {
		mockSvc.On("Scan", mock.Anything, []model.Pair{"BTCUSDT"}).Return(&service.ScanReport{ID: "scan"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/signals?pairs=BTCUSDT", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/limited", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTooManyRequests)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("leaked detail")
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp).Error.Code)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "leaked")
}
