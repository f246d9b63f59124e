package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/relbot/config"
	"github.com/alejandrodnm/relbot/internal/adapters/candles"
	"github.com/alejandrodnm/relbot/internal/adapters/finnhub"
	"github.com/alejandrodnm/relbot/internal/adapters/ibkr"
	"github.com/alejandrodnm/relbot/internal/adapters/llm"
	"github.com/alejandrodnm/relbot/internal/adapters/notify"
	"github.com/alejandrodnm/relbot/internal/adapters/storage"
	"github.com/alejandrodnm/relbot/internal/api"
	"github.com/alejandrodnm/relbot/internal/pipeline"
	"github.com/alejandrodnm/relbot/internal/ports"
	"github.com/alejandrodnm/relbot/internal/uncertainty"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "simulated broker, no audit DB, no real orders")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full reliability table per signal (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	warnings, err := cfg.Validate()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	slog.Info("relbot starting",
		"config", *configPath,
		"threshold", cfg.Trading.ReliabilityThreshold,
		"http", cfg.HTTP.Addr(),
		"dry_run", *dryRun,
	)

	sentiment := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	news := finnhub.NewClient(cfg.News.BaseURL, cfg.News.APIKey, sentiment)
	detector := candles.NewDetector(candles.NewFetcher())

	var broker ports.Broker
	if *dryRun {
		broker = ibkr.NewSim()
	} else {
		broker = ibkr.NewClient(cfg.Broker.BaseURL())
	}

	var audit ports.AuditStore
	if !*dryRun {
		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open audit store", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		audit = store
	}

	calc := uncertainty.NewCalculator(cfg.Weights,
		uncertainty.NewProbability(),
		uncertainty.NewPlausibility(detector),
		uncertainty.NewCredibility(news, sentiment),
		uncertainty.NewPossibility(news),
	)
	gate := pipeline.NewGate(cfg.Trading.ReliabilityThreshold,
		cfg.Trading.BasePositionSize, cfg.Trading.MinPositionSize, cfg.Trading.MaxPositionSize)
	executor := pipeline.NewExecutor(broker, cfg.Trading.MinPositionSize, cfg.Trading.MaxPositionSize)
	executor.SetPollTimings(cfg.PollInterval(), cfg.PollTimeout())

	p := pipeline.New(calc, gate, executor, pipeline.NewHistory(), notify.NewConsole(*table), audit)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(cfg.HTTP, p)
	if err := server.Run(ctx); err != nil {
		slog.Error("http server exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("relbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
