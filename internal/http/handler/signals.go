package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"shannon/internal/model"
	"shannon/internal/service"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports dependency health. Without a database it only reports
// that history is disabled.
//
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.JSON(fiber.Map{"status": "healthy", "database": "disabled"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ScanSignals runs a scan over the requested pairs, or the configured
// universe when the pairs query is empty.
//
// @Summary Scan pairs for DCA signals
// @Tags signals
// @Produce json
// @Param pairs query string false "comma separated pairs, e.g. BTCUSDT,ETHUSDT"
// @Success 200 {object} service.ScanReport
// @Failure 400 {object} errorPayload
// @Router /signals [get]
func ScanSignals(svc service.SignalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pairs, ok := parsePairsQuery(c.Query("pairs"))
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAIR", "pairs must be upper-case exchange symbols")
		}

		report, err := svc.Scan(c.UserContext(), pairs)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return writeError(c, fiber.StatusGatewayTimeout, "TIMEOUT", "scan did not finish in time")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(report)
	}
}

// SignalHistory pages persisted signals.
//
// @Summary List persisted signals
// @Tags signals
// @Produce json
// @Param pair query string false "pair filter"
// @Param limit query int false "page size (max 100)" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.SignalListResult
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /signals/history [get]
func SignalHistory(svc service.SignalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		pair := strings.ToUpper(strings.TrimSpace(c.Query("pair")))
		if pair != "" && !model.Pair(pair).Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAIR", "invalid pair")
		}

		res, err := svc.History(c.UserContext(), pair, limit, offset)
		if err != nil {
			return historyError(c, err)
		}
		return c.JSON(res)
	}
}

// LatestSignal returns the most recent persisted signal for a pair.
//
// @Summary Latest signal for a pair
// @Tags signals
// @Produce json
// @Param pair path string true "pair, e.g. BTCUSDT"
// @Success 200 {object} model.PairSignal
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /signals/{pair}/latest [get]
func LatestSignal(svc service.SignalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pair := strings.ToUpper(c.Params("pair"))
		if !model.Pair(pair).Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAIR", "invalid pair")
		}

		sig, err := svc.Latest(c.UserContext(), pair)
		if err != nil {
			return historyError(c, err)
		}
		return c.JSON(sig)
	}
}

// ListPairs lists exchange symbols for a quote asset.
//
// @Summary List exchange pairs
// @Tags pairs
// @Produce json
// @Param quote query string false "quote asset" default(USDT)
// @Success 200 {array} model.SymbolInfo
// @Failure 502 {object} errorPayload
// @Router /pairs [get]
func ListPairs(svc service.SignalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pairs, err := svc.Pairs(c.UserContext(), c.Query("quote", "USDT"))
		if err != nil {
			if errors.Is(err, service.ErrPairsUnavailable) {
				return writeError(c, fiber.StatusServiceUnavailable, "PAIRS_UNAVAILABLE", "pair listing is unavailable")
			}
			return writeError(c, fiber.StatusBadGateway, "EXCHANGE_ERROR", "exchange request failed")
		}
		return c.JSON(fiber.Map{"data": pairs, "total": len(pairs)})
	}
}

func historyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "signal not found")
	case errors.Is(err, service.ErrHistoryDisabled):
		return writeError(c, fiber.StatusServiceUnavailable, "HISTORY_DISABLED", "signal history is disabled")
	case errors.Is(err, service.ErrPairRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_PAIR", "pair is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// parsePairsQuery splits a comma separated list. An empty query yields nil.
func parsePairsQuery(q string) ([]model.Pair, bool) {
	if strings.TrimSpace(q) == "" {
		return nil, true
	}
	raw := strings.Split(strings.ToUpper(q), ",")
	for i := range raw {
		raw[i] = strings.TrimSpace(raw[i])
	}
	pairs := model.ParsePairs(raw)
	for _, p := range pairs {
		if !p.Valid() {
			return nil, false
		}
	}
	return pairs, len(pairs) > 0
}
