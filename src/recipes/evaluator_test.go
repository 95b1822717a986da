package recipes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

func observation(close float64, mutate func(*datamodels.Observation)) datamodels.Observation {
	obs := datamodels.Observation{
		Bar: datamodels.Bar{
			Ticker: "AAPL",
			Close:  close,
			SMA20:  close,
			SMA50:  close,
			BBMid:  close,
		},
		Cash:        100000,
		InitialCash: 100000,
	}
	if mutate != nil {
		mutate(&obs)
	}
	return obs
}

func basicRecipe(entry datamodels.EntryRule, exit datamodels.ExitRule, size float64) datamodels.Recipe {
	return datamodels.Recipe{
		Mode: datamodels.RecipeModeBasic,
		Basic: &datamodels.BasicRecipe{
			EntryRule:       entry,
			ExitRule:        exit,
			PositionSizePct: size,
		},
	}
}

func advancedRecipe(groups ...datamodels.RuleGroup) datamodels.Recipe {
	return datamodels.Recipe{
		Mode:     datamodels.RecipeModeAdvanced,
		Advanced: &datamodels.AdvancedRecipe{Rules: groups},
	}
}

func mustEvaluator(t *testing.T, recipe datamodels.Recipe) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(recipe, 0)
	require.NoError(t, err)
	return e
}

func TestBasicPriceVsSMAEntrySizesFromCash(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntryPriceVsSMA, datamodels.ExitSMADeathCross, 0.10))
	obs := observation(50, func(o *datamodels.Observation) { o.Bar.SMA20 = 40 })

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Equal(t, 200, decision.Action.Quantity)
	assert.Equal(t, "AAPL", decision.Action.Ticker)
	assert.Contains(t, decision.Reason, "price_vs_sma")
}

func TestBasicZeroSizedBuyFallsThroughToHold(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntryPriceVsSMA, datamodels.ExitSMADeathCross, 0.10))
	obs := observation(5000, func(o *datamodels.Observation) {
		o.Bar.SMA20 = 4000
		o.Cash = 1000
	})

	decision := e.Decide(obs)
	assert.True(t, decision.Action.IsHold())
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
}

func TestBasicExitTakesPriorityWhenHolding(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntrySMACrossover, datamodels.ExitBBOverbought, 0.10))
	obs := observation(120, func(o *datamodels.Observation) {
		o.Bar.SMA20 = 110
		o.Bar.SMA50 = 100
		o.Bar.BBUpper = 115
		o.HeldQuantity = 30
		o.AvgCost = 100
	})

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionSell, decision.Action.Type)
	assert.Equal(t, 30, decision.Action.Quantity)
}

func TestBasicHoldingWithoutExitDoesNotPyramid(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntrySMACrossover, datamodels.ExitSMADeathCross, 0.10))
	obs := observation(120, func(o *datamodels.Observation) {
		o.Bar.SMA20 = 110
		o.Bar.SMA50 = 100
		o.HeldQuantity = 10
	})

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
}

func TestBasicStopLoss(t *testing.T) {
	recipe := basicRecipe(datamodels.EntrySMACrossover, datamodels.ExitStopLoss, 0.10)
	recipe.Basic.StopLossPct = 0.10
	e := mustEvaluator(t, recipe)

	above := observation(91, func(o *datamodels.Observation) {
		o.HeldQuantity = 5
		o.AvgCost = 100
	})
	assert.Equal(t, datamodels.ActionHold, e.Decide(above).Action.Type)

	below := observation(89, func(o *datamodels.Observation) {
		o.HeldQuantity = 5
		o.AvgCost = 100
	})
	decision := e.Decide(below)
	assert.Equal(t, datamodels.ActionSell, decision.Action.Type)
	assert.Equal(t, 5, decision.Action.Quantity)
}

func TestBasicStopLossDefaultsToFivePercent(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntrySMACrossover, datamodels.ExitStopLoss, 0.10))
	obs := observation(94, func(o *datamodels.Observation) {
		o.HeldQuantity = 5
		o.AvgCost = 100
	})
	assert.Equal(t, datamodels.ActionSell, e.Decide(obs).Action.Type)
}

func TestBasicDefaultsApplyWhenSectionMissing(t *testing.T) {
	e := mustEvaluator(t, datamodels.Recipe{})
	obs := observation(100, func(o *datamodels.Observation) {
		o.Bar.SMA20 = 105
		o.Bar.SMA50 = 100
	})

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Equal(t, 100, decision.Action.Quantity)
}

func TestBasicBBOversoldEntry(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntryBBOversold, datamodels.ExitBBOverbought, 0.05))
	obs := observation(95, func(o *datamodels.Observation) { o.Bar.BBLower = 96 })

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Equal(t, 52, decision.Action.Quantity)
}

func TestMissingTickerHolds(t *testing.T) {
	e := mustEvaluator(t, basicRecipe(datamodels.EntryPriceVsSMA, "", 0.10))
	obs := observation(50, func(o *datamodels.Observation) {
		o.Bar.Ticker = ""
		o.Bar.SMA20 = 40
	})

	decision := e.Decide(obs)
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
	assert.Equal(t, "No valid observation", decision.Reason)
}

func TestAdvancedFirstMatchWins(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(
		datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: 10}},
			Action:     "BUY",
			SizePct:    0.5,
		},
		datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: 0}},
			Action:     "HOLD",
		},
	))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Equal(t, 500, decision.Action.Quantity)
	assert.Contains(t, decision.Reason, "(AND)")
}

func TestAdvancedSellWithoutPositionFallsThrough(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(
		datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: 10}},
			Action:     "SELL",
			SizePct:    1,
		},
		datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: 10}},
			Action:     "BUY",
			SizePct:    0.1,
		},
	))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Equal(t, 100, decision.Action.Quantity)
}

func TestAdvancedSellSizesFromPositionWithFloorOfOne(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(datamodels.RuleGroup{
		Conditions: []datamodels.Condition{{Indicator: "held_qty", Op: ">=", Value: 1}},
		Action:     "sell",
		SizePct:    0.25,
	}))

	decision := e.Decide(observation(100, func(o *datamodels.Observation) { o.HeldQuantity = 3 }))
	assert.Equal(t, datamodels.ActionSell, decision.Action.Type)
	assert.Equal(t, 1, decision.Action.Quantity)

	decision = e.Decide(observation(100, func(o *datamodels.Observation) { o.HeldQuantity = 40 }))
	assert.Equal(t, 10, decision.Action.Quantity)
}

func TestAdvancedEmptyGroupIsSkipped(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(
		datamodels.RuleGroup{Action: "BUY", SizePct: 0.5},
		datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "volatility", Op: "==", Value: 0}},
			Action:     "HOLD",
		},
	))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
	assert.Contains(t, decision.Reason, "explicit HOLD")
}

func TestAdvancedOrLogic(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(datamodels.RuleGroup{
		Conditions: []datamodels.Condition{
			{Indicator: "price", Op: "<", Value: 10},
			{Indicator: "cash_ratio", Op: ">=", Value: 1},
		},
		Logic:   "or",
		Action:  "BUY",
		SizePct: 0.1,
	}))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionBuy, decision.Action.Type)
	assert.Contains(t, decision.Reason, "(OR)")
}

func TestAdvancedNoMatchHolds(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(datamodels.RuleGroup{
		Conditions: []datamodels.Condition{
			{Indicator: "price", Op: "<", Value: 10},
			{Indicator: "cash_ratio", Op: ">=", Value: 1},
		},
		Action: "BUY",
	}))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
	assert.Equal(t, "Advanced custom strategy: no rule matched", decision.Reason)
}

func TestAdvancedMalformedValueEvaluatesFalse(t *testing.T) {
	e := mustEvaluator(t, advancedRecipe(datamodels.RuleGroup{
		Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: "abc"}},
		Action:     "BUY",
	}))

	decision := e.Decide(observation(100, nil))
	assert.Equal(t, datamodels.ActionHold, decision.Action.Type)
}

func TestValidateRejectsUnknownShapes(t *testing.T) {
	cases := map[string]datamodels.Recipe{
		"mode":        {Mode: "quantum"},
		"entry":       basicRecipe("moon", "", 0.1),
		"exit":        basicRecipe("", "panic", 0.1),
		"size":        basicRecipe("", "", 1.5),
		"no advanced": {Mode: datamodels.RecipeModeAdvanced},
		"action": advancedRecipe(datamodels.RuleGroup{
			Conditions: []datamodels.Condition{{Indicator: "price", Op: ">", Value: 1}},
			Action:     "SHORT",
		}),
	}
	for name, recipe := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEvaluator(recipe, 0.1)
			assert.True(t, errors.Is(err, errors.ErrInvalidRecipe))
		})
	}
}
