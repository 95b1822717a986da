package market

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

type stubProvider struct {
	bars  []datamodels.Bar
	err   error
	calls int
}

func (s *stubProvider) GetName() string {
	return "stub"
}

func (s *stubProvider) FetchBars(ctx context.Context, symbol, period, interval string) ([]datamodels.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func TestValidateMarketParameters(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		period   string
		interval string
		valid    bool
	}{
		{"defaults", "AAPL", "5d", "5m", true},
		{"exchange suffix", "RELIANCE.NS", "1mo", "1d", true},
		{"index", "^NSEI", "1y", "1wk", true},
		{"empty ticker", "", "5d", "5m", false},
		{"ticker with space", "AA PL", "5d", "5m", false},
		{"unknown period", "AAPL", "7d", "5m", false},
		{"unknown interval", "AAPL", "5d", "7m", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMarketParameters(tt.symbol, tt.period, tt.interval)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, errors.ErrInvalidMarketParameters))
			}
		})
	}
}

func TestNewReplaySourceComputesIndicators(t *testing.T) {
	provider := &stubProvider{bars: barsFromCloses(10, 11, 12)}
	replay, err := NewReplaySource(context.Background(), provider, " AAPL ", "5d", "5m")
	require.NoError(t, err)

	assert.Equal(t, 3, replay.TotalBars())
	assert.Equal(t, "AAPL", replay.CurrentBar().Ticker)
	replay.Advance()
	replay.Advance()
	assert.InDelta(t, 11.0, replay.CurrentBar().SMA20, 1e-12)
}

func TestNewReplaySourceEmptyHistory(t *testing.T) {
	provider := &stubProvider{bars: []datamodels.Bar{}}
	_, err := NewReplaySource(context.Background(), provider, "ZZZZZZ", "5d", "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.True(t, errors.IsConfigurationError(err))
}

func TestNewReplaySourceProviderFailure(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("connection refused")}
	_, err := NewReplaySource(context.Background(), provider, "AAPL", "5d", "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewReplaySourceValidatesBeforeFetching(t *testing.T) {
	provider := &stubProvider{bars: barsFromCloses(1)}
	_, err := NewReplaySource(context.Background(), provider, "AAPL", "bogus", "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidMarketParameters))
	assert.Equal(t, 0, provider.calls)
}

func TestNewBarProviderFromConfig(t *testing.T) {
	provider, err := NewBarProviderFromConfig(&datamodels.MarketConfig{
		Provider: datamodels.MarketProviderYahoo,
		BaseURL:  "http://localhost:1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "yahoo", provider.GetName())

	provider, err = NewBarProviderFromConfig(&datamodels.MarketConfig{
		Provider: datamodels.MarketProviderCsv,
		Csv:      &datamodels.CsvProviderConfig{DataDir: t.TempDir(), HasHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "csv", provider.GetName())

	_, err = NewBarProviderFromConfig(&datamodels.MarketConfig{Provider: "bloomberg"})
	assert.Error(t, err)
}
