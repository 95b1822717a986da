package datamodels

type StrategyType string

const (
	StrategyConservative  StrategyType = "conservative"
	StrategyMomentum      StrategyType = "momentum"
	StrategyMeanReversion StrategyType = "mean_reversion"
	StrategyNoiseTrader   StrategyType = "noise_trader"
	StrategyAdversarial   StrategyType = "adversarial"
	StrategyRecipe        StrategyType = "recipe"
)

var BuiltinStrategyTypes = []StrategyType{
	StrategyConservative,
	StrategyMomentum,
	StrategyMeanReversion,
	StrategyNoiseTrader,
	StrategyAdversarial,
}

// RewardRecord is what an adaptive strategy remembers about one step.
type RewardRecord struct {
	Step   int     `json:"step"`
	Reward float64 `json:"reward"`
}
