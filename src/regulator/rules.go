package regulator

import (
	"fmt"

	"autonomity/src/datamodels"
	"autonomity/src/utils/general"
)

type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictWarn
	VerdictBlock
)

// RuleResult is one rule's opinion. Quantity is the permitted quantity on warn.
type RuleResult struct {
	Verdict  Verdict
	Reason   string
	Quantity int
}

func pass() RuleResult {
	return RuleResult{Verdict: VerdictPass}
}

func warn(quantity int, format string, args ...any) RuleResult {
	return RuleResult{Verdict: VerdictWarn, Quantity: quantity, Reason: fmt.Sprintf(format, args...)}
}

func block(format string, args ...any) RuleResult {
	return RuleResult{Verdict: VerdictBlock, Reason: fmt.Sprintf(format, args...)}
}

// Rule inspects the action as adjusted by the rules before it.
type Rule interface {
	GetName() string
	Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult
}

// portfolioValue marks the agent's holdings in the reviewed ticker at the bar close.
func portfolioValue(req *datamodels.ReviewRequest) float64 {
	return req.State.Cash + float64(req.State.Held(req.Bar.Ticker))*req.Bar.Close
}

type VolatilityHaltRule struct {
	Threshold float64
}

func NewVolatilityHaltRule(threshold float64) *VolatilityHaltRule {
	return &VolatilityHaltRule{Threshold: threshold}
}

func (r *VolatilityHaltRule) GetName() string {
	return "volatility_halt"
}

func (r *VolatilityHaltRule) Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult {
	if action.Type == datamodels.ActionBuy && req.Bar.Volatility > r.Threshold {
		return block("Trading halted: volatility %.4f exceeds %.4f", req.Bar.Volatility, r.Threshold)
	}
	return pass()
}

type NoNakedShortRule struct{}

func NewNoNakedShortRule() *NoNakedShortRule {
	return &NoNakedShortRule{}
}

func (r *NoNakedShortRule) GetName() string {
	return "no_naked_short"
}

func (r *NoNakedShortRule) Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult {
	if action.Type != datamodels.ActionSell {
		return pass()
	}
	held := req.State.Held(action.Ticker)
	if held <= 0 {
		return block("Short selling not permitted: no %s shares held", action.Ticker)
	}
	if action.Quantity > held {
		return warn(held, "Sell of %d exceeds %d held, reduced to %d", action.Quantity, held, held)
	}
	return pass()
}

type CashSufficiencyRule struct{}

func NewCashSufficiencyRule() *CashSufficiencyRule {
	return &CashSufficiencyRule{}
}

func (r *CashSufficiencyRule) GetName() string {
	return "cash_sufficiency"
}

func (r *CashSufficiencyRule) Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult {
	if action.Type != datamodels.ActionBuy {
		return pass()
	}
	price := req.Bar.Close
	cost := float64(action.Quantity) * price
	if cost <= req.State.Cash {
		return pass()
	}
	affordable := general.AffordableQuantity(req.State.Cash, price)
	if affordable <= 0 {
		return block("Insufficient cash: order costs %.2f, cash %.2f", cost, req.State.Cash)
	}
	return warn(affordable, "Order cost %.2f exceeds cash %.2f, reduced to %d", cost, req.State.Cash, affordable)
}

// MaxOrderNotionalRule caps a single buy at a fraction of portfolio value.
// Sells always reduce exposure and are not capped.
type MaxOrderNotionalRule struct {
	MaxPct float64
}

func NewMaxOrderNotionalRule(maxPct float64) *MaxOrderNotionalRule {
	return &MaxOrderNotionalRule{MaxPct: maxPct}
}

func (r *MaxOrderNotionalRule) GetName() string {
	return "max_order_notional"
}

func (r *MaxOrderNotionalRule) Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult {
	price := req.Bar.Close
	if action.Type != datamodels.ActionBuy || price <= 0 {
		return pass()
	}
	limit := portfolioValue(req) * r.MaxPct
	notional := float64(action.Quantity) * price
	if notional <= limit {
		return pass()
	}
	allowed := general.AffordableQuantity(limit, price)
	if allowed <= 0 {
		return block("Order notional %.2f exceeds %.0f%% of portfolio value", notional, r.MaxPct*100)
	}
	return warn(allowed, "Order notional %.2f exceeds %.0f%% of portfolio value (%.2f), reduced to %d",
		notional, r.MaxPct*100, limit, allowed)
}

// PositionConcentrationRule caps the post-trade position at a fraction of
// portfolio value.
type PositionConcentrationRule struct {
	MaxPct float64
}

func NewPositionConcentrationRule(maxPct float64) *PositionConcentrationRule {
	return &PositionConcentrationRule{MaxPct: maxPct}
}

func (r *PositionConcentrationRule) GetName() string {
	return "position_concentration"
}

func (r *PositionConcentrationRule) Evaluate(req *datamodels.ReviewRequest, action datamodels.Action) RuleResult {
	price := req.Bar.Close
	if action.Type != datamodels.ActionBuy || price <= 0 {
		return pass()
	}
	held := req.State.Held(action.Ticker)
	limit := portfolioValue(req) * r.MaxPct
	post := float64(held+action.Quantity) * price
	if post <= limit {
		return pass()
	}
	headroom := general.AffordableQuantity(limit, price) - held
	if headroom <= 0 {
		return block("Position in %s already at %.0f%% concentration limit", action.Ticker, r.MaxPct*100)
	}
	return warn(headroom, "Post-trade position %.2f exceeds %.0f%% of portfolio value, reduced to %d",
		post, r.MaxPct*100, headroom)
}
