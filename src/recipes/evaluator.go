package recipes

import (
	"fmt"
	"strings"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

const (
	DefaultPositionSizePct = 0.10
	DefaultStopLossPct     = 0.05
)

// Evaluator turns a validated recipe into decisions. It holds no state
// between calls, so the same evaluator may serve any number of steps.
type Evaluator struct {
	recipe      datamodels.Recipe
	defaultSize float64
}

// NewEvaluator validates recipe and binds it to a fallback position size.
// A non-positive defaultSize falls back to DefaultPositionSizePct.
func NewEvaluator(recipe datamodels.Recipe, defaultSize float64) (*Evaluator, error) {
	if err := Validate(recipe); err != nil {
		return nil, err
	}
	if defaultSize <= 0 {
		defaultSize = DefaultPositionSizePct
	}
	return &Evaluator{recipe: recipe, defaultSize: defaultSize}, nil
}

func (e *Evaluator) GetRecipe() datamodels.Recipe {
	return e.recipe
}

// Validate rejects recipes that cannot be evaluated: unknown modes, missing
// mode sections, unknown basic rules, unparseable actions and sizes outside (0, 1].
func Validate(recipe datamodels.Recipe) error {
	switch recipe.Mode {
	case datamodels.RecipeModeBasic, "":
		if recipe.Basic == nil {
			return nil
		}
		return validateBasic(*recipe.Basic)
	case datamodels.RecipeModeAdvanced:
		if recipe.Advanced == nil {
			return errors.Wrap(errors.ErrInvalidRecipe, "advanced recipe has no rules section")
		}
		return validateAdvanced(*recipe.Advanced)
	}
	return errors.Wrapf(errors.ErrInvalidRecipe, "unknown recipe mode %q", recipe.Mode)
}

func validateBasic(basic datamodels.BasicRecipe) error {
	switch basic.EntryRule {
	case "", datamodels.EntrySMACrossover, datamodels.EntryBBOversold, datamodels.EntryPriceVsSMA:
	default:
		return errors.Wrapf(errors.ErrInvalidRecipe, "unknown entry rule %q", basic.EntryRule)
	}
	switch basic.ExitRule {
	case "", datamodels.ExitSMADeathCross, datamodels.ExitBBOverbought, datamodels.ExitStopLoss:
	default:
		return errors.Wrapf(errors.ErrInvalidRecipe, "unknown exit rule %q", basic.ExitRule)
	}
	if basic.PositionSizePct < 0 || basic.PositionSizePct > 1 {
		return errors.Wrapf(errors.ErrInvalidRecipe, "position_size_pct %v outside [0, 1]", basic.PositionSizePct)
	}
	if basic.StopLossPct < 0 || basic.StopLossPct >= 1 {
		return errors.Wrapf(errors.ErrInvalidRecipe, "stop_loss_pct %v outside [0, 1)", basic.StopLossPct)
	}
	return nil
}

func validateAdvanced(advanced datamodels.AdvancedRecipe) error {
	for i, rule := range advanced.Rules {
		if rule.Action != "" {
			if _, ok := datamodels.ParseActionType(rule.Action); !ok {
				return errors.Wrapf(errors.ErrInvalidRecipe, "rule %d: unknown action %q", i, rule.Action)
			}
		}
		if rule.SizePct < 0 || rule.SizePct > 1 {
			return errors.Wrapf(errors.ErrInvalidRecipe, "rule %d: size_pct %v outside [0, 1]", i, rule.SizePct)
		}
	}
	return nil
}

// Decide evaluates the recipe against one observation.
func (e *Evaluator) Decide(obs datamodels.Observation) datamodels.Decision {
	if obs.Ticker() == "" {
		return datamodels.HoldDecision("", "No valid observation")
	}
	if e.recipe.Mode == datamodels.RecipeModeAdvanced {
		return e.decideAdvanced(&obs)
	}
	return e.decideBasic(&obs)
}

func (e *Evaluator) sizeOr(pct float64) float64 {
	if pct <= 0 {
		return e.defaultSize
	}
	return pct
}

func buyQuantity(cash, sizePct, price float64) int {
	if price <= 0 || cash <= 0 {
		return 0
	}
	return int(cash * sizePct / price)
}

func (e *Evaluator) decideBasic(obs *datamodels.Observation) datamodels.Decision {
	basic := datamodels.BasicRecipe{}
	if e.recipe.Basic != nil {
		basic = *e.recipe.Basic
	}
	entry := basic.EntryRule
	if entry == "" {
		entry = datamodels.EntrySMACrossover
	}
	exit := basic.ExitRule
	if exit == "" {
		exit = datamodels.ExitSMADeathCross
	}
	size := e.sizeOr(basic.PositionSizePct)

	ticker := obs.Ticker()
	bar := obs.Bar

	if obs.HeldQuantity > 0 {
		if fired, why := exitFired(exit, basic.StopLossPct, obs); fired {
			return datamodels.Decision{
				Action: datamodels.Action{Type: datamodels.ActionSell, Ticker: ticker, Quantity: obs.HeldQuantity},
				Reason: fmt.Sprintf("Custom exit %s: %s", exit, why),
			}
		}
		return datamodels.HoldDecision(ticker, "Custom strategy: no trigger matched")
	}

	if fired, why := entryFired(entry, &bar); fired {
		if qty := buyQuantity(obs.Cash, size, bar.Close); qty > 0 {
			return datamodels.Decision{
				Action: datamodels.Action{Type: datamodels.ActionBuy, Ticker: ticker, Quantity: qty},
				Reason: fmt.Sprintf("Custom entry %s: %s", entry, why),
			}
		}
	}
	return datamodels.HoldDecision(ticker, "Custom strategy: no trigger matched")
}

func entryFired(rule datamodels.EntryRule, bar *datamodels.Bar) (bool, string) {
	switch rule {
	case datamodels.EntrySMACrossover:
		if bar.SMA20 > bar.SMA50 {
			return true, fmt.Sprintf("SMA golden-cross (SMA20 %.2f > SMA50 %.2f)", bar.SMA20, bar.SMA50)
		}
	case datamodels.EntryBBOversold:
		if bar.Close < bar.BBLower {
			return true, fmt.Sprintf("Price %.2f below BB lower %.2f", bar.Close, bar.BBLower)
		}
	case datamodels.EntryPriceVsSMA:
		if bar.Close > bar.SMA20 {
			return true, fmt.Sprintf("Price %.2f above SMA20 %.2f", bar.Close, bar.SMA20)
		}
	}
	return false, ""
}

func exitFired(rule datamodels.ExitRule, stopLossPct float64, obs *datamodels.Observation) (bool, string) {
	bar := obs.Bar
	switch rule {
	case datamodels.ExitSMADeathCross:
		if bar.SMA20 < bar.SMA50 {
			return true, fmt.Sprintf("SMA death-cross (SMA20 %.2f < SMA50 %.2f)", bar.SMA20, bar.SMA50)
		}
	case datamodels.ExitBBOverbought:
		if bar.Close > bar.BBUpper {
			return true, fmt.Sprintf("Price %.2f above BB upper %.2f", bar.Close, bar.BBUpper)
		}
	case datamodels.ExitStopLoss:
		avg := obs.AvgCost
		if avg <= 0 {
			avg = bar.Close
		}
		if stopLossPct <= 0 {
			stopLossPct = DefaultStopLossPct
		}
		if bar.Close < avg*(1-stopLossPct) {
			return true, fmt.Sprintf("Stop-loss triggered at %.2f (cost %.2f)", bar.Close, avg)
		}
	}
	return false, ""
}

func (e *Evaluator) decideAdvanced(obs *datamodels.Observation) datamodels.Decision {
	ticker := obs.Ticker()
	if e.recipe.Advanced == nil {
		return datamodels.HoldDecision(ticker, "Advanced custom strategy: no rule matched")
	}

	for _, rule := range e.recipe.Advanced.Rules {
		if len(rule.Conditions) == 0 {
			continue
		}
		logic := strings.ToUpper(strings.TrimSpace(rule.Logic))
		if logic == "" {
			logic = "AND"
		}
		if !groupFired(rule.Conditions, logic == "AND", obs) {
			continue
		}

		action := datamodels.ActionHold
		if rule.Action != "" {
			action, _ = datamodels.ParseActionType(rule.Action)
		}
		size := e.sizeOr(rule.SizePct)

		switch action {
		case datamodels.ActionBuy:
			if qty := buyQuantity(obs.Cash, size, obs.Bar.Close); qty > 0 {
				return datamodels.Decision{
					Action: datamodels.Action{Type: datamodels.ActionBuy, Ticker: ticker, Quantity: qty},
					Reason: fmt.Sprintf("Custom rule matched (%s): BUY %.0f%% of cash", logic, size*100),
				}
			}
		case datamodels.ActionSell:
			if obs.HeldQuantity > 0 {
				qty := max(1, int(float64(obs.HeldQuantity)*size))
				return datamodels.Decision{
					Action: datamodels.Action{Type: datamodels.ActionSell, Ticker: ticker, Quantity: qty},
					Reason: fmt.Sprintf("Custom rule matched (%s): SELL %.0f%% of position", logic, size*100),
				}
			}
		case datamodels.ActionHold:
			return datamodels.HoldDecision(ticker, fmt.Sprintf("Custom rule matched (%s): explicit HOLD", logic))
		}
	}
	return datamodels.HoldDecision(ticker, "Advanced custom strategy: no rule matched")
}

func groupFired(conditions []datamodels.Condition, all bool, obs *datamodels.Observation) bool {
	for _, cond := range conditions {
		ok := EvaluateCondition(cond, obs)
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}
