package binance

import (
	"encoding/json"
	"fmt"
	"strconv"

	"shannon/internal/model"
)

// klineFields is the number of positional fields in a kline row; the twelfth
// is unused by the exchange.
const klineFields = 11

// parseKlines decodes positional kline rows:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades,
// takerBuyBase, takerBuyQuote, ignore]. Prices are JSON strings.
func parseKlines(rows [][]json.RawMessage) ([]model.Candle, error) {
	out := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < klineFields {
			return nil, fmt.Errorf("%w: kline %d has %d fields", ErrInvalidResponse, i, len(row))
		}
		p := rowParser{row: row}
		c := model.Candle{
			OpenTime:                 p.integer(0),
			Open:                     p.decimal(1),
			High:                     p.decimal(2),
			Low:                      p.decimal(3),
			Close:                    p.decimal(4),
			Volume:                   p.decimal(5),
			CloseTime:                p.integer(6),
			QuoteAssetVolume:         p.decimal(7),
			NumberOfTrades:           p.integer(8),
			TakerBuyBaseAssetVolume:  p.decimal(9),
			TakerBuyQuoteAssetVolume: p.decimal(10),
		}
		if p.err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", ErrInvalidResponse, i, p.err)
		}
		out = append(out, c)
	}
	return out, nil
}

// rowParser keeps the first decoding error so a row can be read field by field.
type rowParser struct {
	row []json.RawMessage
	err error
}

func (p *rowParser) integer(i int) int64 {
	if p.err != nil {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(p.row[i], &n); err != nil {
		p.err = fmt.Errorf("field %d: %w", i, err)
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		p.err = fmt.Errorf("field %d: %w", i, err)
	}
	return v
}

func (p *rowParser) decimal(i int) float64 {
	if p.err != nil {
		return 0
	}
	var s string
	if err := json.Unmarshal(p.row[i], &s); err != nil {
		// Some mirrors send bare numbers.
		var n json.Number
		if err := json.Unmarshal(p.row[i], &n); err != nil {
			p.err = fmt.Errorf("field %d: %w", i, err)
			return 0
		}
		s = n.String()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("field %d: %w", i, err)
	}
	return v
}
