package strategies

import (
	"log/slog"

	"autonomity/src/datamodels"
)

type baseStrategy struct {
	name             string
	strategyType     datamodels.StrategyType
	positionFraction float64
}

func (b *baseStrategy) GetName() string {
	return b.name
}

func (b *baseStrategy) GetType() datamodels.StrategyType {
	return b.strategyType
}

func (b *baseStrategy) UpdateAfterStep(reward float64, bar datamodels.Bar) {}

func (b *baseStrategy) setPositionFraction(fraction float64) {
	if fraction < 0 || fraction > 1 {
		slog.Error("Position fraction must be within [0, 1]", "strategy", b.name, "fraction", fraction)
		return
	}
	if fraction > 0 {
		b.positionFraction = fraction
	}
}

// sizeBuy is floor(cash * fraction / price), or 0 when the price is unusable.
func sizeBuy(cash, fraction, price float64) int {
	if price <= 0 || cash <= 0 {
		return 0
	}
	return int(cash * fraction / price)
}

func buy(ticker string, qty int, reason string) datamodels.Decision {
	return datamodels.Decision{
		Action: datamodels.Action{Type: datamodels.ActionBuy, Ticker: ticker, Quantity: qty},
		Reason: reason,
	}
}

func sell(ticker string, qty int, reason string) datamodels.Decision {
	return datamodels.Decision{
		Action: datamodels.Action{Type: datamodels.ActionSell, Ticker: ticker, Quantity: qty},
		Reason: reason,
	}
}
