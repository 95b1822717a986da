package strategies

import (
	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

// Strategy maps one observation to a proposed action. Implementations are
// driven from a single goroutine by the orchestrator.
type Strategy interface {
	GetName() string
	GetType() datamodels.StrategyType
	Decide(obs datamodels.Observation) (datamodels.Decision, error)
	// UpdateAfterStep is called exactly once per agent per step with the
	// step-over-step change in portfolio value.
	UpdateAfterStep(reward float64, bar datamodels.Bar)
}

var defaultGoals = map[datamodels.StrategyType]string{
	datamodels.StrategyConservative:  "Preserve capital, trade small only in calm markets",
	datamodels.StrategyMomentum:      "Ride established trends and size up while they pay",
	datamodels.StrategyMeanReversion: "Buy oversold dips and sell overbought rallies",
	datamodels.StrategyNoiseTrader:   "Inject random order flow into the market",
	datamodels.StrategyAdversarial:   "Probe the regulator with non-compliant orders",
	datamodels.StrategyRecipe:        "User-defined custom strategy",
}

func DefaultGoal(strategyType datamodels.StrategyType) string {
	return defaultGoals[strategyType]
}

// DefaultRoster is the built-in agent line-up in creation order.
func DefaultRoster() []datamodels.AgentConfig {
	return []datamodels.AgentConfig{
		{Name: "Conservative", Type: datamodels.StrategyConservative},
		{Name: "Momentum", Type: datamodels.StrategyMomentum},
		{Name: "MeanReversion", Type: datamodels.StrategyMeanReversion},
		{Name: "NoiseTrader", Type: datamodels.StrategyNoiseTrader},
		{Name: "Adversarial", Type: datamodels.StrategyAdversarial},
	}
}

// ResolveRoster returns the configured roster (or the default one) followed by
// the configured and extra custom agents. Followers and Goal are filled in.
func ResolveRoster(config *datamodels.SimulationConfig, extra []datamodels.AgentConfig) ([]datamodels.AgentConfig, error) {
	roster := DefaultRoster()
	if len(config.Roster) > 0 {
		roster = append([]datamodels.AgentConfig{}, config.Roster...)
	}
	roster = append(roster, config.CustomAgents...)
	roster = append(roster, extra...)

	names := make([]string, 0, len(roster))
	for i := range roster {
		if err := roster[i].Validate(); err != nil {
			return nil, err
		}
		if roster[i].Followers <= 0 {
			roster[i].Followers = 1
		}
		if roster[i].Goal == "" {
			roster[i].Goal = DefaultGoal(roster[i].Type)
		}
		if roster[i].Type == datamodels.StrategyNoiseTrader && roster[i].Seed == 0 {
			roster[i].Seed = config.NoiseSeed
		}
		names = append(names, roster[i].Name)
	}
	if !noDuplicates(names) {
		return nil, errors.Wrap(errors.ErrInvalidAgentConfig, "agent names must be unique")
	}
	return roster, nil
}

func noDuplicates(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return false
		}
		seen[name] = struct{}{}
	}
	return true
}

// StrategyFromConfig builds the strategy named by config.Type.
func StrategyFromConfig(config datamodels.AgentConfig) (Strategy, error) {
	switch config.Type {
	case datamodels.StrategyConservative:
		return NewConservativeStrategy(config.Name).WithPositionFraction(config.PositionSizePct), nil
	case datamodels.StrategyMomentum:
		return NewMomentumStrategy(config.Name).WithPositionFraction(config.PositionSizePct), nil
	case datamodels.StrategyMeanReversion:
		return NewMeanReversionStrategy(config.Name).WithPositionFraction(config.PositionSizePct), nil
	case datamodels.StrategyNoiseTrader:
		return NewNoiseTraderStrategy(config.Name, config.Seed).WithPositionFraction(config.PositionSizePct), nil
	case datamodels.StrategyAdversarial:
		return NewAdversarialStrategy(config.Name), nil
	case datamodels.StrategyRecipe:
		if config.Recipe == nil {
			return nil, errors.Wrapf(errors.ErrInvalidRecipe, "agent %s has no recipe", config.Name)
		}
		strategy, err := NewRecipeStrategy(config.Name, *config.Recipe, config.PositionSizePct)
		if err != nil {
			return nil, err
		}
		return strategy, nil
	}
	return nil, errors.Wrapf(errors.ErrInvalidAgentConfig, "unknown strategy type: %s", config.Type)
}
