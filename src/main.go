package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"autonomity/src/audit"
	"autonomity/src/config"
	"autonomity/src/database"
	"autonomity/src/market"
	"autonomity/src/metrics"
	"autonomity/src/server"
	"autonomity/src/simulation"
)

func main() {
	initializeLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	autonomityConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Ramping up Autonomity")

	db, err := database.NewDatabaseFromConfig(autonomityConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	wsWriter := metrics.NewWebSocketMetricsWriter()
	multiWriter, err := metrics.NewMetricsWriterBuilder(autonomityConfig.MetricsWriter).
		WithDatabase(db).
		WithWebsocketWriter(wsWriter).
		WithRegisterer(registry).
		Build()
	if err != nil {
		slog.Error("Failed to build metrics writer", "error", err)
		os.Exit(1)
	}
	var metricsWriter metrics.MetricsWriter
	if multiWriter != nil {
		metricsWriter = multiWriter
		defer multiWriter.Close()
	}

	provider, err := market.NewBarProviderFromConfig(&autonomityConfig.MarketConfig)
	if err != nil {
		slog.Error("Failed to create market data provider", "error", err)
		os.Exit(1)
	}

	sim, err := simulation.NewSimulation(provider).
		WithSimulationConfig(autonomityConfig.SimulationConfig).
		WithRegulatorConfig(&autonomityConfig.RegulatorConfig).
		WithMaxAutoSteps(autonomityConfig.ServerConfig.MaxAutoSteps).
		WithAuditLogger(audit.NewLogger().WithMetricsWriter(metricsWriter)).
		WithMetricsWriter(metricsWriter).
		Build()
	if err != nil {
		slog.Error("Failed to build simulation", "error", err)
		os.Exit(1)
	}

	serverBuilder := server.NewServer(autonomityConfig.ServerConfig).
		WithSimulation(sim).
		WithWebsocketWriter(wsWriter).
		WithGatherer(registry)
	if db != nil {
		if feed := db.GetAuditFeed(); feed != nil {
			serverBuilder = serverBuilder.WithAuditFeed(feed)
		}
	}
	srv, err := serverBuilder.Build()
	if err != nil {
		slog.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(ctx); err != nil {
			slog.Error("Server failed", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
