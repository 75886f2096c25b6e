package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Signal actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// PairSignalData is one point of the close price series attached to a signal.
type PairSignalData struct {
	CloseTime  int64   `json:"close_time"`
	ClosePrice float64 `json:"close"`
}

// PairSignalMetadata carries the indicator values a signal was derived from.
type PairSignalMetadata struct {
	DaysSinceHighestPrice int              `json:"days_since_highest_price"`
	DaysSinceLowestPrice  int              `json:"days_since_lowest_price"`
	PctDiffFromSMA50      float64          `json:"pct_diff_from_sma50"`
	Data                  []PairSignalData `json:"data"`
	PctDiffFromHigh       float64          `json:"pct_diff_from_high"`
	PctDiffFromLow        float64          `json:"pct_diff_from_low"`
	VolumeAboveAvg        bool             `json:"volume_above_avg"`
	HighestPrice          float64          `json:"highest_price"`
	LowestPrice           float64          `json:"lowest_price"`
	DaysCount             int              `json:"days_count"`
	Date                  string           `json:"date"`
}

// PairSignal is a buy or sell recommendation for a single pair.
type PairSignal struct {
	ID         string             `json:"id"`
	Pair       string             `json:"pair"`
	ShouldBuy  bool               `json:"should_buy"`
	ShouldSell bool               `json:"should_sell"`
	ClosePrice float64            `json:"close_price"`
	RSI        float64            `json:"rsi"`
	Metadata   PairSignalMetadata `json:"metadata"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Action returns ActionBuy, ActionSell or an empty string.
func (s PairSignal) Action() string {
	switch {
	case s.ShouldSell:
		return ActionSell
	case s.ShouldBuy:
		return ActionBuy
	default:
		return ""
	}
}

// String renders the one-line summary printed by the CLI.
func (s PairSignal) String() string {
	pctDiff := s.Metadata.PctDiffFromLow
	if s.ShouldSell {
		pctDiff = s.Metadata.PctDiffFromHigh
	}
	return fmt.Sprintf("[%s %s] close_price=%s rsi=%s pct_diff=%s",
		s.Pair,
		s.Action(),
		strconv.FormatFloat(s.ClosePrice, 'f', -1, 64),
		strconv.FormatFloat(round2(s.RSI), 'f', -1, 64),
		strconv.FormatFloat(round2(pctDiff), 'f', -1, 64),
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
