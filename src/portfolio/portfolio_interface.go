package portfolio

import (
	"autonomity/src/datamodels"
)

// Portfolio is the only path through which an agent's cash and holdings change.
type Portfolio interface {
	// Apply executes an already-reviewed action at price. BUYs that cost more
	// than the available cash and SELLs of nothing are no-ops; SELLs are
	// clamped to the held quantity.
	Apply(action datamodels.Action, price float64)
	// Valuation is cash plus holdings of ticker marked at price; an empty
	// ticker marks every holding at price.
	Valuation(price float64, ticker string) float64
	RecordValuation(value float64)
	SetLastReason(reason string)

	GetCash() float64
	GetInitialCash() float64
	GetPosition(ticker string) int
	GetAvgCost(ticker string) (float64, bool)
	GetLastReward() float64
	State(price float64, ticker string) datamodels.AgentState
}

func NewPortfolioFromConfig(config *datamodels.SimulationConfig) Portfolio {
	initialCash := datamodels.DefaultInitialCash
	if config != nil && config.InitialCash > 0 {
		initialCash = config.InitialCash
	}
	return NewLedger(initialCash)
}
