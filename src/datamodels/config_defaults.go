package datamodels

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultInitialCash     = 100_000.0
	DefaultRecentWindow    = 50
	DefaultMaxAutoSteps    = 100
	DefaultAutoSteps       = 10
	DefaultSymbol          = "AAPL"
	DefaultPeriod          = "5d"
	DefaultInterval        = "5m"
	DefaultHaltVolatility  = 0.05
	DefaultMaxOrderPct     = 0.25
	DefaultMaxPositionPct  = 0.50
	DefaultYahooBaseURL    = "https://query1.finance.yahoo.com"
	DefaultMarketUserAgent = "Mozilla/5.0 (compatible; autonomity/1.0)"
)

// SetDefaults registers every default so a missing config file still yields a
// runnable configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.health_endpoint", "/health")
	v.SetDefault("server.metrics_endpoint", "/metrics")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_auto_steps", DefaultMaxAutoSteps)
	v.SetDefault("server.gin_mode", "release")

	v.SetDefault("simulation.initial_cash", DefaultInitialCash)
	v.SetDefault("simulation.recent_window", DefaultRecentWindow)
	v.SetDefault("simulation.noise_seed", 42)

	v.SetDefault("market.provider", string(MarketProviderYahoo))
	v.SetDefault("market.base_url", DefaultYahooBaseURL)
	v.SetDefault("market.user_agent", DefaultMarketUserAgent)
	v.SetDefault("market.timeout", 15*time.Second)
	v.SetDefault("market.csv.has_header", true)

	v.SetDefault("regulator.halt_volatility", DefaultHaltVolatility)
	v.SetDefault("regulator.max_order_pct", DefaultMaxOrderPct)
	v.SetDefault("regulator.max_position_pct", DefaultMaxPositionPct)

	v.SetDefault("database.driver", string(DatabaseDriverNone))

	v.SetDefault("backtest.period", DefaultPeriod)
	v.SetDefault("backtest.interval", DefaultInterval)
	v.SetDefault("backtest.output_dir", "output")
}

func DefaultRegulatorConfig() RegulatorConfig {
	return RegulatorConfig{
		HaltVolatility: DefaultHaltVolatility,
		MaxOrderPct:    DefaultMaxOrderPct,
		MaxPositionPct: DefaultMaxPositionPct,
	}
}
