package strategies

import (
	"fmt"

	"autonomity/src/datamodels"
)

const meanReversionPositionFraction = 0.12

// MeanReversionStrategy buys below the lower Bollinger band and closes the
// position above the upper band.
type MeanReversionStrategy struct {
	baseStrategy
}

func NewMeanReversionStrategy(name string) *MeanReversionStrategy {
	return &MeanReversionStrategy{
		baseStrategy: baseStrategy{
			name:             name,
			strategyType:     datamodels.StrategyMeanReversion,
			positionFraction: meanReversionPositionFraction,
		},
	}
}

func (s *MeanReversionStrategy) WithPositionFraction(fraction float64) *MeanReversionStrategy {
	s.setPositionFraction(fraction)
	return s
}

func (s *MeanReversionStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	ticker := obs.Ticker()
	bar := obs.Bar

	if bar.Close < bar.BBLower {
		if qty := sizeBuy(obs.Cash, s.positionFraction, bar.Close); qty > 0 {
			return buy(ticker, qty, fmt.Sprintf(
				"Price %.2f < BB_LOW %.2f: oversold, mean-reversion BUY (BB_MID=%.2f, BB_UP=%.2f)",
				bar.Close, bar.BBLower, bar.BBMid, bar.BBUpper)), nil
		}
	}

	if bar.Close > bar.BBUpper && obs.HeldQuantity > 0 {
		return sell(ticker, obs.HeldQuantity, fmt.Sprintf(
			"Price %.2f > BB_UP %.2f: overbought, closing %d shares (BB_MID=%.2f, BB_LOW=%.2f)",
			bar.Close, bar.BBUpper, obs.HeldQuantity, bar.BBMid, bar.BBLower)), nil
	}

	return datamodels.HoldDecision(ticker, fmt.Sprintf(
		"HOLD: price %.2f within bands [%.2f, %.2f]", bar.Close, bar.BBLower, bar.BBUpper)), nil
}
