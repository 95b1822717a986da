package recipes

import (
	"strings"

	"autonomity/src/datamodels"
)

// Indicator names the values a recipe condition may read.
type Indicator string

const (
	IndicatorPrice      Indicator = "price"
	IndicatorSMA20      Indicator = "sma20"
	IndicatorSMA50      Indicator = "sma50"
	IndicatorBBUpper    Indicator = "bb_up"
	IndicatorBBLower    Indicator = "bb_low"
	IndicatorBBMid      Indicator = "bb_mid"
	IndicatorVolatility Indicator = "volatility"
	IndicatorVolume     Indicator = "volume"
	IndicatorHeldQty    Indicator = "held_qty"
	IndicatorCashRatio  Indicator = "cash_ratio"
)

var Indicators = []Indicator{
	IndicatorPrice,
	IndicatorSMA20,
	IndicatorSMA50,
	IndicatorBBUpper,
	IndicatorBBLower,
	IndicatorBBMid,
	IndicatorVolatility,
	IndicatorVolume,
	IndicatorHeldQty,
	IndicatorCashRatio,
}

// ResolveIndicator reads a named indicator from an observation. Unknown
// names resolve to 0.
func ResolveIndicator(name string, obs *datamodels.Observation) float64 {
	switch Indicator(strings.ToLower(strings.TrimSpace(name))) {
	case IndicatorPrice:
		return obs.Bar.Close
	case IndicatorSMA20:
		return obs.Bar.SMA20
	case IndicatorSMA50:
		return obs.Bar.SMA50
	case IndicatorBBUpper:
		return obs.Bar.BBUpper
	case IndicatorBBLower:
		return obs.Bar.BBLower
	case IndicatorBBMid:
		return obs.Bar.BBMid
	case IndicatorVolatility:
		return obs.Bar.Volatility
	case IndicatorVolume:
		return obs.Bar.Volume
	case IndicatorHeldQty:
		return float64(obs.HeldQuantity)
	case IndicatorCashRatio:
		if obs.InitialCash > 0 {
			return obs.Cash / obs.InitialCash
		}
		return 1.0
	}
	return 0
}
