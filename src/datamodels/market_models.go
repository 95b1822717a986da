package datamodels

import "time"

// Bar is one OHLCV period of a single instrument plus the indicators derived
// from the bars preceding it. Indicators that cannot be computed are 0.
type Bar struct {
	Index      int       `json:"index"`
	Ticker     string    `json:"ticker"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	SMA20      float64   `json:"sma20"`
	SMA50      float64   `json:"sma50"`
	BBUpper    float64   `json:"bb_up"`
	BBMid      float64   `json:"bb_mid"`
	BBLower    float64   `json:"bb_low"`
	Volatility float64   `json:"volatility"`
}

func (b *Bar) GetTimestamp() time.Time {
	return b.Timestamp
}

type MarketPeriod string

type MarketInterval string

// MarketRequest identifies the history a replay is built from.
type MarketRequest struct {
	Symbol   string `json:"ticker"`
	Period   string `json:"period"`
	Interval string `json:"interval"`
}
