package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/mmbot/config"
	"github.com/alejandrodnm/mmbot/internal/adapters/exchange"
	"github.com/alejandrodnm/mmbot/internal/adapters/notify"
	"github.com/alejandrodnm/mmbot/internal/adapters/storage"
	"github.com/alejandrodnm/mmbot/internal/engine"
	"github.com/alejandrodnm/mmbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full status panel per tick (default: compact 1-line)")
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

	slog.Info("mmbot starting",
		"config", *configPath,
		"exchange", cfg.Strategy.Exchange,
		"pair", cfg.Strategy.TradingPair,
		"refresh", cfg.RefreshInterval(),
		"once", *once,
	)

	exch, err := buildExchange(cfg)
	if err != nil {
		slog.Error("failed to build exchange", "err", err)
		os.Exit(1)
	}

	var store ports.Storage
	if cfg.Journal.DSN != "" {
		sqliteStore, err := storage.NewSQLiteStorage(cfg.Journal.DSN)
		if err != nil {
			slog.Error("failed to open journal", "err", err, "dsn", cfg.Journal.DSN)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	notifier := notify.NewConsole(*table)

	eng, err := engine.New(engineConfig(cfg), exch, store, notifier)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		if _, err := eng.RunOnce(ctx); err != nil {
			slog.Error("tick failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("mmbot stopped cleanly")
}

// buildExchange wires the venue adapter named in the config. Only the paper
// venue ships today; the switch is the extension point for live connectors.
func buildExchange(cfg *config.Config) (ports.Exchange, error) {
	switch cfg.Strategy.Exchange {
	case "paper":
		base, quote, ok := strings.Cut(cfg.Strategy.TradingPair, "-")
		if !ok {
			return nil, fmt.Errorf("trading pair %q is not BASE-QUOTE", cfg.Strategy.TradingPair)
		}
		return exchange.NewPaper(exchange.PaperConfig{
			TradingPair:  cfg.Strategy.TradingPair,
			BaseAsset:    base,
			QuoteAsset:   quote,
			BaseBalance:  decimal.NewFromFloat(cfg.Paper.BaseBalance),
			QuoteBalance: decimal.NewFromFloat(cfg.Paper.QuoteBalance),
			InitialMid:   decimal.NewFromFloat(cfg.Paper.InitialMid),
			Drift:        cfg.Paper.Drift,
			Volatility:   cfg.Paper.Volatility,
			Seed:         cfg.Paper.Seed,
			OrdersPerSec: cfg.Paper.OrderRate,
		})
	default:
		return nil, fmt.Errorf("unsupported exchange %q", cfg.Strategy.Exchange)
	}
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Exchange:               cfg.Strategy.Exchange,
		TradingPair:            cfg.Strategy.TradingPair,
		OrderAmount:            decimal.NewFromFloat(cfg.Strategy.OrderAmount),
		BidSpread:              decimal.NewFromFloat(cfg.Strategy.BidSpread),
		AskSpread:              decimal.NewFromFloat(cfg.Strategy.AskSpread),
		InventorySkewEnabled:   cfg.Strategy.InventorySkewEnabled,
		InventoryTargetBasePct: decimal.NewFromFloat(cfg.Strategy.InventoryTargetBasePct),
		EMAPeriod:              cfg.Strategy.EMAPeriod,
		RSIPeriod:              cfg.Strategy.RSIPeriod,
		BollingerPeriod:        cfg.Strategy.BollingerPeriod,
		BollingerDev:           cfg.Strategy.BollingerDev,
		RSIUseRecentDeltas:     cfg.Strategy.RSIUseRecentDeltas,
		RefreshInterval:        cfg.RefreshInterval(),
		StopLoss: engine.StopLossConfig{
			Enabled:   cfg.Strategy.StopLoss.Enabled,
			Threshold: cfg.Strategy.StopLoss.Threshold,
			Cooldown:  cfg.StopLossCooldown(),
		},
	}
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
