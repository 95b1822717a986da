package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"autonomity/src/audit"
	"autonomity/src/config"
	"autonomity/src/database"
)

// Dumps the persisted trade and regulation logs of one simulation to CSV.
//
//	export_audit <simulation_id> [out_dir]
func main() {
	if len(os.Args) < 2 {
		slog.Error("Usage: export_audit <simulation_id> [out_dir]")
		os.Exit(1)
	}
	simulationId := os.Args[1]
	outDir := "."
	if len(os.Args) > 2 {
		outDir = os.Args[2]
	}

	appConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	db, err := database.NewDatabaseFromConfig(appConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if db == nil {
		slog.Error("Database persistence is disabled, nothing to export")
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	trades, err := db.GetTradeLog(ctx, simulationId, 0)
	if err != nil {
		slog.Error("Failed to read trade log", "error", err)
		os.Exit(1)
	}
	events, err := db.GetRegulationLog(ctx, simulationId, 0)
	if err != nil {
		slog.Error("Failed to read regulation log", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}
	tradePath := filepath.Join(outDir, simulationId+"_trades.csv")
	if err := writeFile(tradePath, func(f *os.File) error { return audit.WriteTradeLogCsv(f, trades) }); err != nil {
		slog.Error("Failed to write trade log", "error", err)
		os.Exit(1)
	}
	regulationPath := filepath.Join(outDir, simulationId+"_regulation.csv")
	if err := writeFile(regulationPath, func(f *os.File) error { return audit.WriteRegulationLogCsv(f, events) }); err != nil {
		slog.Error("Failed to write regulation log", "error", err)
		os.Exit(1)
	}
	slog.Info("Exported audit logs", "trades", len(trades), "regulation_events", len(events), "dir", outDir)
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
