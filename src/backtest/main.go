package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"autonomity/src/datamodels"
	"autonomity/src/market"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Interrupted, stopping backtest")
		cancel()
	}()

	_, thisFile, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(thisFile)

	// get config filepath from first arg
	if len(os.Args) < 2 {
		slog.Error("No config file provided")
		os.Exit(1)
	}
	configFilePath := os.Args[1]

	slog.Info("Using config file", "path", configFilePath)

	cfg, err := datamodels.NewBacktestConfig(configFilePath, baseDir)
	if err != nil {
		slog.Error("Failed to read backtest config", "error", err)
		os.Exit(1)
	}
	if err := cfg.BacktestConfig.Validate(); err != nil {
		slog.Error("Invalid backtest config", "error", err)
		os.Exit(1)
	}
	if err := cfg.SimulationConfig.Validate(); err != nil {
		slog.Error("Invalid simulation config", "error", err)
		os.Exit(1)
	}

	provider, err := market.NewBarProviderFromConfig(&cfg.MarketConfig)
	if err != nil {
		slog.Error("Failed to create market data provider", "error", err)
		os.Exit(1)
	}

	result, err := runBacktest(ctx, cfg, provider)
	if err != nil {
		slog.Error("Backtest failed", "error", err)
		os.Exit(1)
	}
	for _, agent := range result.Snapshot.Agents {
		slog.Info("Final portfolio", "agent", agent.Name, "value", agent.PortfolioValue, "cash", agent.Cash)
	}

	if err := uploadArtifacts(ctx, cfg.StorageConfig, cfg.BacktestConfig.OutputDir, result.Snapshot.SimulationId, result.Artifacts); err != nil {
		slog.Error("Failed to upload artifacts", "error", err)
		os.Exit(1)
	}
	slog.Info("Backtest complete", "plot", result.PlotPath, "artifacts", len(result.Artifacts))
}
