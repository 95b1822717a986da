package main

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"autonomity/src/config"
	"autonomity/src/datamodels"
	"autonomity/src/market"
	"autonomity/src/utils/general"
)

// Saves Yahoo history as <SYMBOL>_<interval>.csv for the csv provider and
// copies it to the configured bucket if there is one.
//
//	download_history <symbol> <period> <interval> [out_dir]
func main() {
	if len(os.Args) < 4 {
		slog.Error("Usage: download_history <symbol> <period> <interval> [out_dir]")
		os.Exit(1)
	}
	symbol, period, interval := os.Args[1], os.Args[2], os.Args[3]
	outDir := "data"
	if len(os.Args) > 4 {
		outDir = os.Args[4]
	}
	if err := market.ValidateMarketParameters(symbol, period, interval); err != nil {
		slog.Error("Invalid request", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	appConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	marketConfig := appConfig.MarketConfig
	if valid, reason := general.IsValidURL(marketConfig.BaseURL); !valid {
		slog.Error("Invalid market base url", "url", marketConfig.BaseURL, "reason", reason)
		os.Exit(1)
	}

	marketConfig.Provider = datamodels.MarketProviderYahoo
	provider, err := market.NewBarProviderFromConfig(&marketConfig)
	if err != nil {
		slog.Error("Failed to create yahoo provider", "error", err)
		os.Exit(1)
	}
	bars, err := provider.FetchBars(ctx, symbol, period, interval)
	if err != nil {
		slog.Error("Failed to fetch history", "symbol", symbol, "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}
	filename := market.CsvFilename(symbol, interval)
	localPath := filepath.Join(outDir, filename)
	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("Failed to create csv file", "error", err)
		os.Exit(1)
	}
	if err := market.WriteCsvBars(f, bars); err != nil {
		f.Close()
		slog.Error("Failed to write csv file", "error", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		slog.Error("Failed to close csv file", "error", err)
		os.Exit(1)
	}
	slog.Info("Saved history", "path", localPath, "bars", len(bars))

	storage := appConfig.StorageConfig
	if storage.Bucket == "" {
		return
	}
	objectPath := path.Join(storage.Prefix, "history", filename)
	if err := general.CopyFileToBucket(ctx, localPath, storage.Bucket, objectPath); err != nil {
		slog.Error("Failed to upload history", "error", err)
		os.Exit(1)
	}
}
