package strategies

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/montanaflynn/stats"

	"autonomity/src/datamodels"
	"autonomity/src/utils/general"
)

const (
	momentumPositionFraction = 0.10
	momentumMinFraction      = 0.05
	momentumMaxFraction      = 0.20
	momentumRewardWindow     = 5
	momentumScaleUp          = 1.10
	momentumScaleDown        = 0.90
)

// MomentumStrategy follows SMA trends. It learns from its own results: the
// position fraction grows while the recent reward sum is positive and shrinks
// while it is negative, bounded by [minFraction, maxFraction].
type MomentumStrategy struct {
	baseStrategy
	minFraction float64
	maxFraction float64
	rewards     *general.BoundedBuffer[datamodels.RewardRecord]
	steps       int
	mutex       sync.RWMutex
}

func NewMomentumStrategy(name string) *MomentumStrategy {
	return &MomentumStrategy{
		baseStrategy: baseStrategy{
			name:             name,
			strategyType:     datamodels.StrategyMomentum,
			positionFraction: momentumPositionFraction,
		},
		minFraction: momentumMinFraction,
		maxFraction: momentumMaxFraction,
		rewards:     general.NewBoundedBuffer[datamodels.RewardRecord](momentumRewardWindow),
	}
}

func (s *MomentumStrategy) WithPositionFraction(fraction float64) *MomentumStrategy {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.setPositionFraction(fraction)
	s.positionFraction = min(max(s.positionFraction, s.minFraction), s.maxFraction)
	return s
}

func (s *MomentumStrategy) GetPositionFraction() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.positionFraction
}

func (s *MomentumStrategy) GetRewardHistory() []datamodels.RewardRecord {
	return s.rewards.GetAllElements()
}

func (s *MomentumStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	ticker := obs.Ticker()
	bar := obs.Bar

	if obs.HeldQuantity > 0 && bar.SMA20 < bar.SMA50 {
		return sell(ticker, obs.HeldQuantity, fmt.Sprintf(
			"Trend reversal: SMA20 %.2f < SMA50 %.2f, closing %d shares",
			bar.SMA20, bar.SMA50, obs.HeldQuantity)), nil
	}

	if obs.HeldQuantity == 0 && bar.SMA20 > bar.SMA50 && bar.Close > bar.SMA20 {
		fraction := s.GetPositionFraction()
		if qty := sizeBuy(obs.Cash, fraction, bar.Close); qty > 0 {
			return buy(ticker, qty, fmt.Sprintf(
				"Uptrend: price %.2f > SMA20 %.2f > SMA50 %.2f, buying with %.0f%% of cash",
				bar.Close, bar.SMA20, bar.SMA50, fraction*100)), nil
		}
	}

	return datamodels.HoldDecision(ticker, "HOLD: no momentum signal"), nil
}

func (s *MomentumStrategy) UpdateAfterStep(reward float64, bar datamodels.Bar) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.steps++
	s.rewards.AddElement(datamodels.RewardRecord{Step: s.steps, Reward: reward})

	recent := s.rewards.GetAllElements()
	values := make(stats.Float64Data, len(recent))
	for i, r := range recent {
		values[i] = r.Reward
	}
	total, err := stats.Sum(values)
	if err != nil {
		slog.Debug("Skipping momentum adaptation", "strategy", s.name, "error", err)
		return
	}

	switch {
	case total > 0:
		s.positionFraction = min(s.positionFraction*momentumScaleUp, s.maxFraction)
	case total < 0:
		s.positionFraction = max(s.positionFraction*momentumScaleDown, s.minFraction)
	}
}
