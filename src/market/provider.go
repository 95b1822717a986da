package market

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

// BarProvider fetches raw OHLCV history. Indicator fields are left zero.
type BarProvider interface {
	FetchBars(ctx context.Context, symbol, period, interval string) ([]datamodels.Bar, error)
	GetName() string
}

var validPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

var validIntervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9.\-=^]{0,19}$`)

func ValidPeriods() []string {
	return append([]string{}, validPeriods...)
}

func ValidIntervals() []string {
	return append([]string{}, validIntervals...)
}

// ValidateMarketParameters rejects requests no provider could serve.
func ValidateMarketParameters(symbol, period, interval string) error {
	if !symbolPattern.MatchString(symbol) {
		return errors.Wrapf(errors.ErrInvalidMarketParameters, "invalid ticker %q", symbol)
	}
	if !general.ItemInSlice(validPeriods, period) {
		return errors.Wrapf(errors.ErrInvalidMarketParameters, "invalid period %q, expected one of %s",
			period, strings.Join(validPeriods, ", "))
	}
	if !general.ItemInSlice(validIntervals, interval) {
		return errors.Wrapf(errors.ErrInvalidMarketParameters, "invalid interval %q, expected one of %s",
			interval, strings.Join(validIntervals, ", "))
	}
	return nil
}

func NewBarProviderFromConfig(config *datamodels.MarketConfig) (BarProvider, error) {
	if config == nil {
		return nil, errors.New("market config is nil")
	}
	switch config.Provider {
	case datamodels.MarketProviderYahoo, "":
		provider := NewYahooProvider(config.BaseURL)
		if config.Timeout > 0 {
			provider = provider.WithTimeout(config.Timeout)
		}
		if config.UserAgent != "" {
			provider = provider.WithUserAgent(config.UserAgent)
		}
		slog.Info("Using Yahoo chart provider", "base_url", config.BaseURL)
		return provider, nil
	case datamodels.MarketProviderCsv:
		if config.Csv == nil {
			return nil, errors.New("market.csv config is required for the csv provider")
		}
		slog.Info("Using CSV provider", "data_dir", config.Csv.DataDir)
		return NewCsvProviderFromConfig(config.Csv)
	}
	return nil, errors.Newf("unknown market provider %q", config.Provider)
}

// NewReplaySource validates the request, fetches history and computes
// indicators. Provider failures and empty results are ErrDataUnavailable.
func NewReplaySource(ctx context.Context, provider BarProvider, symbol, period, interval string) (*HistoricalReplay, error) {
	symbol = strings.TrimSpace(symbol)
	if err := ValidateMarketParameters(symbol, period, interval); err != nil {
		return nil, err
	}

	start := time.Now()
	bars, err := provider.FetchBars(ctx, symbol, period, interval)
	if err != nil {
		if errors.Is(err, errors.ErrDataUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.Wrapef(errors.ErrDataUnavailable, err, "%s fetch for %s failed", provider.GetName(), symbol)
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable,
			"no data for ticker=%q period=%q interval=%q", symbol, period, interval)
	}
	slog.Info("Fetched market history",
		"provider", provider.GetName(),
		"ticker", symbol,
		"period", period,
		"interval", interval,
		"bars", len(bars),
		"elapsed", time.Since(start))

	return NewHistoricalReplay(symbol, ComputeIndicators(bars))
}

// periodStart returns the earliest timestamp a period keeps, counted back
// from the last bar. ok is false when the period keeps everything.
func periodStart(period string, last time.Time) (time.Time, bool) {
	switch period {
	case "1d":
		return last.AddDate(0, 0, -1), true
	case "5d":
		return last.AddDate(0, 0, -5), true
	case "1mo":
		return last.AddDate(0, -1, 0), true
	case "3mo":
		return last.AddDate(0, -3, 0), true
	case "6mo":
		return last.AddDate(0, -6, 0), true
	case "1y":
		return last.AddDate(-1, 0, 0), true
	case "2y":
		return last.AddDate(-2, 0, 0), true
	case "5y":
		return last.AddDate(-5, 0, 0), true
	case "10y":
		return last.AddDate(-10, 0, 0), true
	case "ytd":
		return time.Date(last.Year(), 1, 1, 0, 0, 0, 0, last.Location()), true
	}
	return time.Time{}, false
}
