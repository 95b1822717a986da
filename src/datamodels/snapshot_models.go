package datamodels

// AgentSnapshot is the externally visible state of one agent. Money values
// are rounded to cents.
type AgentSnapshot struct {
	Name           string         `json:"name"`
	Strategy       StrategyType   `json:"strategy"`
	Cash           float64        `json:"cash"`
	Positions      map[string]int `json:"positions"`
	PortfolioValue float64        `json:"portfolio_value"`
	LastAction     *Action        `json:"last_action"`
	LastReason     string         `json:"last_reason"`
	Followers      int            `json:"followers,omitempty"`
	Goal           string         `json:"goal,omitempty"`
}

// Snapshot is a self-contained copy of the simulation; later steps never
// change a snapshot already handed out.
type Snapshot struct {
	SimulationId  string               `json:"simulation_id"`
	Step          int                  `json:"step"`
	MaxSteps      int                  `json:"max_steps"`
	Ticker        string               `json:"ticker"`
	Period        string               `json:"period"`
	Interval      string               `json:"interval"`
	Finished      bool                 `json:"finished"`
	CurrentBar    Bar                  `json:"current_bar"`
	PriceHistory  []Bar                `json:"price_history"`
	Agents        []AgentSnapshot      `json:"agents"`
	TradeLog      []TradeLogEntry      `json:"trade_log"`
	RegulationLog []RegulationLogEntry `json:"regulation_log"`
}

func (s *Snapshot) GetAgent(name string) (AgentSnapshot, bool) {
	for _, agent := range s.Agents {
		if agent.Name == name {
			return agent, true
		}
	}
	return AgentSnapshot{}, false
}
