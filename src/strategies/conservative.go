package strategies

import (
	"fmt"

	"autonomity/src/datamodels"
)

const (
	conservativeVolatilityThreshold = 0.02
	conservativePositionFraction    = 0.07
	conservativeStopLossPct         = 0.03
)

// ConservativeStrategy only enters in calm, mildly rising markets and cuts
// losses at a fixed percentage below cost.
type ConservativeStrategy struct {
	baseStrategy
	volatilityThreshold float64
	stopLossPct         float64
}

func NewConservativeStrategy(name string) *ConservativeStrategy {
	return &ConservativeStrategy{
		baseStrategy: baseStrategy{
			name:             name,
			strategyType:     datamodels.StrategyConservative,
			positionFraction: conservativePositionFraction,
		},
		volatilityThreshold: conservativeVolatilityThreshold,
		stopLossPct:         conservativeStopLossPct,
	}
}

func (s *ConservativeStrategy) WithPositionFraction(fraction float64) *ConservativeStrategy {
	s.setPositionFraction(fraction)
	return s
}

func (s *ConservativeStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	ticker := obs.Ticker()
	bar := obs.Bar

	if obs.HeldQuantity > 0 && obs.AvgCost > 0 {
		stop := obs.AvgCost * (1 - s.stopLossPct)
		if bar.Close < stop {
			return sell(ticker, obs.HeldQuantity, fmt.Sprintf(
				"Stop-loss triggered: price %.2f < %.2f (avg_cost %.2f - %g%%)",
				bar.Close, stop, obs.AvgCost, s.stopLossPct*100)), nil
		}
	}

	if bar.Volatility > s.volatilityThreshold {
		return datamodels.HoldDecision(ticker, fmt.Sprintf(
			"HOLD: volatility %.4f exceeds threshold %g", bar.Volatility, s.volatilityThreshold)), nil
	}

	if bar.Close < bar.SMA50 && bar.SMA20 > bar.SMA50 && obs.HeldQuantity == 0 {
		if qty := sizeBuy(obs.Cash, s.positionFraction, bar.Close); qty > 0 {
			return buy(ticker, qty, fmt.Sprintf(
				"Low volatility (%.4f), price %.2f < SMA50 %.2f, SMA20 %.2f > SMA50: small long entry",
				bar.Volatility, bar.Close, bar.SMA50, bar.SMA20)), nil
		}
	}

	return datamodels.HoldDecision(ticker, "HOLD: conditions not met for conservative entry"), nil
}
