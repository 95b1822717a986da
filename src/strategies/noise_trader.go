package strategies

import (
	"fmt"
	"math/rand"

	"autonomity/src/datamodels"
)

const (
	noiseTradeProbability   = 0.15
	noisePositionFraction   = 0.02
	noiseBuyDirectionChance = 0.5
)

// NoiseTraderStrategy trades small random quantities in a random direction.
// Runs are reproducible for a given seed.
type NoiseTraderStrategy struct {
	baseStrategy
	seed int64
	rng  *rand.Rand
}

func NewNoiseTraderStrategy(name string, seed int64) *NoiseTraderStrategy {
	return &NoiseTraderStrategy{
		baseStrategy: baseStrategy{
			name:             name,
			strategyType:     datamodels.StrategyNoiseTrader,
			positionFraction: noisePositionFraction,
		},
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *NoiseTraderStrategy) WithPositionFraction(fraction float64) *NoiseTraderStrategy {
	s.setPositionFraction(fraction)
	return s
}

func (s *NoiseTraderStrategy) GetSeed() int64 {
	return s.seed
}

func (s *NoiseTraderStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	ticker := obs.Ticker()

	if s.rng.Float64() > noiseTradeProbability {
		return datamodels.HoldDecision(ticker, "No action this step (random skip)"), nil
	}

	if s.rng.Float64() < noiseBuyDirectionChance {
		if affordable := sizeBuy(obs.Cash, s.positionFraction, obs.Bar.Close); affordable > 0 {
			qty := 1 + s.rng.Intn(affordable)
			return buy(ticker, qty, fmt.Sprintf("Random noise BUY of %d shares", qty)), nil
		}
	} else if obs.HeldQuantity > 0 {
		qty := 1 + s.rng.Intn(obs.HeldQuantity)
		return sell(ticker, qty, fmt.Sprintf("Random noise SELL of %d shares", qty)), nil
	}

	return datamodels.HoldDecision(ticker, "Random action considered but no position to sell / insufficient cash"), nil
}
