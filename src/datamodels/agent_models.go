package datamodels

import (
	"fmt"
	"strings"
)

type ActionType string

const (
	ActionBuy  ActionType = "BUY"
	ActionSell ActionType = "SELL"
	ActionHold ActionType = "HOLD"
)

// ParseActionType accepts any casing; ok is false for anything but BUY, SELL or HOLD.
func ParseActionType(s string) (ActionType, bool) {
	switch ActionType(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy, true
	case ActionSell:
		return ActionSell, true
	case ActionHold:
		return ActionHold, true
	}
	return "", false
}

// Action is a proposed or approved trade. Quantity is a whole number of shares.
type Action struct {
	Type     ActionType `json:"type"`
	Ticker   string     `json:"ticker"`
	Quantity int        `json:"quantity"`
}

func HoldAction(ticker string) Action {
	return Action{Type: ActionHold, Ticker: ticker, Quantity: 0}
}

func (a Action) IsHold() bool {
	return a.Type == ActionHold || a.Quantity == 0
}

func (a Action) IsValid() bool {
	if a.Quantity < 0 {
		return false
	}
	switch a.Type {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

func (a Action) String() string {
	return fmt.Sprintf("%s %d %s", a.Type, a.Quantity, a.Ticker)
}

// Decision pairs an action with the strategy's human-readable rationale.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

func HoldDecision(ticker string, reason string) Decision {
	return Decision{Action: HoldAction(ticker), Reason: reason}
}

// Observation is everything a strategy sees when asked to decide. AvgCost is
// 0 when nothing is held.
type Observation struct {
	Step         int     `json:"step"`
	Bar          Bar     `json:"bar"`
	RecentWindow []Bar   `json:"-"`
	Cash         float64 `json:"cash"`
	InitialCash  float64 `json:"initial_cash"`
	HeldQuantity int     `json:"held_quantity"`
	AvgCost      float64 `json:"avg_cost"`
}

func (o *Observation) Ticker() string {
	return o.Bar.Ticker
}

// AgentState is a read-only copy of a ledger used by review and snapshots.
type AgentState struct {
	Cash           float64            `json:"cash"`
	InitialCash    float64            `json:"initial_cash"`
	Positions      map[string]int     `json:"positions"`
	AvgCost        map[string]float64 `json:"avg_cost"`
	PortfolioValue float64            `json:"portfolio_value"`
	LastAction     *Action            `json:"last_action"`
	LastReason     string             `json:"last_reason"`
	ValueHistory   []float64          `json:"value_history"`
}

func (s *AgentState) Held(ticker string) int {
	return s.Positions[ticker]
}
