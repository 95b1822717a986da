package market

import (
	"sync"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

type HistoricalReplay struct {
	ticker  string
	bars    []datamodels.Bar
	current int
	mutex   sync.RWMutex
}

// NewHistoricalReplay takes ownership of a copy of bars and stamps each bar
// with its index and ticker. Indicators are expected to be computed already.
func NewHistoricalReplay(ticker string, bars []datamodels.Bar) (*HistoricalReplay, error) {
	if len(bars) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s", ticker)
	}
	owned := make([]datamodels.Bar, len(bars))
	copy(owned, bars)
	for i := range owned {
		owned[i].Index = i
		owned[i].Ticker = ticker
	}
	return &HistoricalReplay{
		ticker: ticker,
		bars:   owned,
	}, nil
}

func (r *HistoricalReplay) GetTicker() string {
	return r.ticker
}

func (r *HistoricalReplay) CurrentBar() datamodels.Bar {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.bars[r.current]
}

func (r *HistoricalReplay) RecentWindow(n int) []datamodels.Bar {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if n <= 0 {
		return []datamodels.Bar{}
	}
	start := r.current - n + 1
	if start < 0 {
		start = 0
	}
	window := make([]datamodels.Bar, r.current-start+1)
	copy(window, r.bars[start:r.current+1])
	return window
}

func (r *HistoricalReplay) Advance() (datamodels.Bar, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.current < len(r.bars)-1 {
		r.current++
	}
	return r.bars[r.current], r.current >= len(r.bars)-1
}

func (r *HistoricalReplay) IsDone() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.current >= len(r.bars)-1
}

func (r *HistoricalReplay) TotalBars() int {
	return len(r.bars)
}

func (r *HistoricalReplay) CurrentStep() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.current
}
