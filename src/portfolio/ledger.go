package portfolio

import (
	"log/slog"
	"sync"

	"autonomity/src/datamodels"
)

type Ledger struct {
	cash         float64
	initialCash  float64
	positions    map[string]int
	avgCost      map[string]float64
	valueHistory []float64
	lastAction   *datamodels.Action
	lastReason   string
	mutex        sync.RWMutex
}

func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		cash:         initialCash,
		initialCash:  initialCash,
		positions:    make(map[string]int),
		avgCost:      make(map[string]float64),
		valueHistory: make([]float64, 0),
	}
}

func (l *Ledger) Apply(action datamodels.Action, price float64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	switch action.Type {
	case datamodels.ActionBuy:
		if action.Quantity > 0 {
			cost := float64(action.Quantity) * price
			if cost <= l.cash {
				l.cash -= cost
				prevQty := l.positions[action.Ticker]
				prevCost := l.avgCost[action.Ticker]
				newQty := prevQty + action.Quantity
				l.avgCost[action.Ticker] = (prevCost*float64(prevQty) + price*float64(action.Quantity)) / float64(newQty)
				l.positions[action.Ticker] = newQty
			} else {
				slog.Debug("Ledger ignoring unaffordable buy", "action", action.String(), "cash", l.cash, "cost", cost)
			}
		}
	case datamodels.ActionSell:
		if action.Quantity > 0 {
			held := l.positions[action.Ticker]
			sellQty := min(action.Quantity, held)
			if sellQty > 0 {
				l.cash += float64(sellQty) * price
				l.positions[action.Ticker] = held - sellQty
				if l.positions[action.Ticker] == 0 {
					delete(l.positions, action.Ticker)
					delete(l.avgCost, action.Ticker)
				}
			}
		}
	}

	recorded := action
	l.lastAction = &recorded
}

func (l *Ledger) Valuation(price float64, ticker string) float64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.valuation(price, ticker)
}

func (l *Ledger) valuation(price float64, ticker string) float64 {
	holdings := 0.0
	for t, qty := range l.positions {
		if ticker != "" && t != ticker {
			continue
		}
		holdings += float64(qty) * price
	}
	return l.cash + holdings
}

func (l *Ledger) RecordValuation(value float64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.valueHistory = append(l.valueHistory, value)
}

func (l *Ledger) SetLastReason(reason string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.lastReason = reason
}

func (l *Ledger) GetCash() float64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.cash
}

func (l *Ledger) GetInitialCash() float64 {
	return l.initialCash
}

func (l *Ledger) GetPosition(ticker string) int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.positions[ticker]
}

func (l *Ledger) GetAvgCost(ticker string) (float64, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	cost, ok := l.avgCost[ticker]
	return cost, ok
}

func (l *Ledger) GetLastAction() *datamodels.Action {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if l.lastAction == nil {
		return nil
	}
	action := *l.lastAction
	return &action
}

func (l *Ledger) GetLastReason() string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.lastReason
}

func (l *Ledger) GetValueHistory() []float64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	history := make([]float64, len(l.valueHistory))
	copy(history, l.valueHistory)
	return history
}

// GetLastReward is the change between the two latest recorded valuations.
func (l *Ledger) GetLastReward() float64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	n := len(l.valueHistory)
	if n < 2 {
		return 0
	}
	return l.valueHistory[n-1] - l.valueHistory[n-2]
}

func (l *Ledger) State(price float64, ticker string) datamodels.AgentState {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	positions := make(map[string]int, len(l.positions))
	for t, qty := range l.positions {
		positions[t] = qty
	}
	avgCost := make(map[string]float64, len(l.avgCost))
	for t, cost := range l.avgCost {
		avgCost[t] = cost
	}
	history := make([]float64, len(l.valueHistory))
	copy(history, l.valueHistory)

	var lastAction *datamodels.Action
	if l.lastAction != nil {
		action := *l.lastAction
		lastAction = &action
	}

	return datamodels.AgentState{
		Cash:           l.cash,
		InitialCash:    l.initialCash,
		Positions:      positions,
		AvgCost:        avgCost,
		PortfolioValue: l.valuation(price, ticker),
		LastAction:     lastAction,
		LastReason:     l.lastReason,
		ValueHistory:   history,
	}
}
