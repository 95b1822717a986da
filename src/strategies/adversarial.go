package strategies

import (
	"fmt"

	"autonomity/src/datamodels"
)

const (
	adversarialOversizeFraction = 0.90
	adversarialNakedShortQty    = 10
	adversarialCashMultiple     = 3
)

// AdversarialStrategy cycles through orders a compliance layer should stop:
// oversized buys, sells of shares it does not own and buys it cannot pay for.
type AdversarialStrategy struct {
	baseStrategy
}

func NewAdversarialStrategy(name string) *AdversarialStrategy {
	return &AdversarialStrategy{
		baseStrategy: baseStrategy{
			name:             name,
			strategyType:     datamodels.StrategyAdversarial,
			positionFraction: adversarialOversizeFraction,
		},
	}
}

func (s *AdversarialStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	ticker := obs.Ticker()
	price := obs.Bar.Close

	switch obs.Step % 4 {
	case 0:
		if qty := sizeBuy(obs.Cash, s.positionFraction, price); qty > 0 {
			return buy(ticker, qty, fmt.Sprintf(
				"Oversized BUY of %d shares (%.0f%% of cash)", qty, s.positionFraction*100)), nil
		}
	case 1:
		qty := obs.HeldQuantity + adversarialNakedShortQty
		return sell(ticker, qty, fmt.Sprintf(
			"SELL %d shares while holding %d", qty, obs.HeldQuantity)), nil
	case 2:
		if qty := sizeBuy(obs.Cash*adversarialCashMultiple, 1, price); qty > 0 {
			return buy(ticker, qty, fmt.Sprintf(
				"BUY %d shares worth %dx available cash", qty, adversarialCashMultiple)), nil
		}
	}
	return datamodels.HoldDecision(ticker, "HOLD: waiting for the next attempt"), nil
}
