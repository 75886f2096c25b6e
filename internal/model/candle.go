package model

import "time"

// Candle is a single kline (OHLCV bar) as returned by the exchange.
// Times are unix milliseconds, matching the exchange wire format.
type Candle struct {
	OpenTime                 int64   `json:"open_time"`
	Open                     float64 `json:"open"`
	High                     float64 `json:"high"`
	Low                      float64 `json:"low"`
	Close                    float64 `json:"close"`
	Volume                   float64 `json:"volume"`
	CloseTime                int64   `json:"close_time"`
	QuoteAssetVolume         float64 `json:"quote_asset_volume"`
	NumberOfTrades           int64   `json:"number_of_trades"`
	TakerBuyBaseAssetVolume  float64 `json:"taker_buy_base_asset_volume"`
	TakerBuyQuoteAssetVolume float64 `json:"taker_buy_quote_asset_volume"`
}

// Date returns the candle open time in UTC.
func (c Candle) Date() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// Empty reports whether every price and volume field is zero.
func (c Candle) Empty() bool {
	return c.Open == 0 && c.High == 0 && c.Low == 0 && c.Close == 0 && c.Volume == 0
}

// SymbolInfo describes a tradable symbol listed on the exchange.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}
