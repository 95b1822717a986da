package main

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"time"

	"autonomity/src/audit"
	"autonomity/src/datamodels"
	"autonomity/src/market"
	"autonomity/src/metrics"
	"autonomity/src/simulation"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

// backtestResult is what a finished headless run leaves behind.
type backtestResult struct {
	Snapshot  datamodels.Snapshot
	PlotPath  string
	Artifacts []string
}

// runBacktest replays one symbol to completion (or backtest.max_steps) and
// renders the equity curves.
func runBacktest(ctx context.Context, cfg *datamodels.AutonomityConfig, provider market.BarProvider) (*backtestResult, error) {
	backtest := cfg.BacktestConfig

	multiWriter, err := metrics.NewMetricsWriterBuilder(cfg.MetricsWriter).Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build metrics writer")
	}
	if multiWriter == nil {
		multiWriter = metrics.NewMultiMetricsWriter()
	}
	defer func() {
		if err := multiWriter.Close(); err != nil {
			slog.Warn("Failed to flush metrics", "error", err)
		}
	}()

	plotPath := filepath.Join(backtest.OutputDir, backtest.Symbol+"_equity.png")
	plotter, err := metrics.NewMetricPlotter().
		WithTitle(backtest.Symbol + " portfolio value by agent").
		WithFileOutput(plotPath).
		Build()
	if err != nil {
		return nil, err
	}
	multiWriter.AddWriter(plotter)

	sim, err := simulation.NewSimulation(provider).
		WithSimulationConfig(cfg.SimulationConfig).
		WithRegulatorConfig(&cfg.RegulatorConfig).
		WithAuditLogger(audit.NewLogger().WithMetricsWriter(multiWriter)).
		WithMetricsWriter(multiWriter).
		Build()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot, err := sim.Initialize(ctx, backtest.Symbol, backtest.Period, backtest.Interval)
	if err != nil {
		return nil, err
	}
	for !snapshot.Finished {
		if backtest.MaxSteps > 0 && snapshot.Step >= backtest.MaxSteps {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snapshot, err = sim.Step(ctx)
		if err != nil {
			return nil, err
		}
	}
	slog.Info("Backtest finished",
		"symbol", backtest.Symbol,
		"steps", snapshot.Step,
		"trades", len(snapshot.TradeLog),
		"interventions", len(snapshot.RegulationLog),
		"elapsed", time.Since(start))

	if err := plotter.Plot(); err != nil {
		return nil, err
	}
	artifacts, err := listArtifacts(backtest.OutputDir)
	if err != nil {
		return nil, err
	}
	return &backtestResult{Snapshot: snapshot, PlotPath: plotPath, Artifacts: artifacts}, nil
}

func listArtifacts(dir string) ([]string, error) {
	artifacts := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			artifacts = append(artifacts, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s", dir)
	}
	sort.Strings(artifacts)
	return artifacts, nil
}

// uploadArtifacts copies every artifact to gs://bucket/prefix/simulationId/.
func uploadArtifacts(ctx context.Context, storageConfig datamodels.StorageConfig, outputDir, simulationId string, artifacts []string) error {
	if storageConfig.Bucket == "" {
		return nil
	}
	for _, artifact := range artifacts {
		rel, err := filepath.Rel(outputDir, artifact)
		if err != nil {
			return err
		}
		objectPath := path.Join(storageConfig.Prefix, simulationId, filepath.ToSlash(rel))
		if err := general.CopyFileToBucket(ctx, artifact, storageConfig.Bucket, objectPath); err != nil {
			return errors.Wrapf(err, "failed to upload %s", artifact)
		}
	}
	return nil
}
