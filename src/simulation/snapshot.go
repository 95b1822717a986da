package simulation

import (
	"autonomity/src/datamodels"
	"autonomity/src/utils/general"
)

// snapshot copies everything it returns so later steps cannot reach into it.
func (s *Simulation) snapshot(r *run) datamodels.Snapshot {
	currentBar := r.source.CurrentBar()
	priceHistory := make([]datamodels.Bar, len(r.priceHistory))
	copy(priceHistory, r.priceHistory)

	agents := make([]datamodels.AgentSnapshot, 0, len(r.agents))
	for _, a := range r.agents {
		state := a.ledger.State(currentBar.Close, r.ticker)
		agents = append(agents, datamodels.AgentSnapshot{
			Name:           a.config.Name,
			Strategy:       a.config.Type,
			Cash:           general.RoundCents(state.Cash),
			Positions:      state.Positions,
			PortfolioValue: general.RoundCents(state.PortfolioValue),
			LastAction:     state.LastAction,
			LastReason:     state.LastReason,
			Followers:      a.config.Followers,
			Goal:           a.config.Goal,
		})
	}

	return datamodels.Snapshot{
		SimulationId:  r.id,
		Step:          r.step,
		MaxSteps:      r.maxSteps,
		Ticker:        r.ticker,
		Period:        r.period,
		Interval:      r.interval,
		Finished:      r.finished,
		CurrentBar:    currentBar,
		PriceHistory:  priceHistory,
		Agents:        agents,
		TradeLog:      s.auditLogger.GetTradeLog(),
		RegulationLog: s.auditLogger.GetRegulationLog(),
	}
}
