package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"memeCoinBot/config"
	"memeCoinBot/internal/adapters/binanceclient"
	"memeCoinBot/internal/adapters/logger"
	"memeCoinBot/internal/adapters/sqlite"
	"memeCoinBot/internal/app"
	"memeCoinBot/internal/portfolio"
	"memeCoinBot/internal/ports"
	"memeCoinBot/internal/risk"
	"memeCoinBot/internal/strategy"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		appLogger = logger.NewZerologLogger(cfg.LogLevel)
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{
		"level":  cfg.LogLevel.String(),
		"format": cfg.LogFormat,
	})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:        cfg.APIKey,
		SecretKey:     cfg.SecretKey,
		UseTestnet:    cfg.IsTestnet,
		Logger:        appLogger,
		KlineInterval: cfg.KlineInterval,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 5. Initialize Signal Scorer
	scorer, err := strategy.New(strategy.Config{
		SMAFastPeriod:          cfg.SMAFastPeriod,
		SMASlowPeriod:          cfg.SMASlowPeriod,
		EMAFastPeriod:          cfg.EMAFastPeriod,
		EMASlowPeriod:          cfg.EMASlowPeriod,
		RSIPeriod:              cfg.RSIPeriod,
		RSIOverbought:          cfg.RSIOverbought,
		RSIOversold:            cfg.RSIOversold,
		BBPeriod:               cfg.BBPeriod,
		BBStdMult:              cfg.BBStdMult,
		MinPriceHistory:        cfg.MinPriceHistory,
		MinConfidence:          cfg.MinConfidence,
		VolatilityThresholdPct: cfg.VolatilityThresholdPct,
		BaseAmountUSD:          cfg.BaseAmountUSD,
	}, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal scorer")
		log.Fatalf("FATAL: Failed to initialize signal scorer: %v", err)
	}
	appLogger.Info(context.Background(), "Signal scorer initialized")

	// 6. Initialize Risk Gate
	gate, err := risk.New(risk.Config{
		MinConfidence:     cfg.MinConfidence,
		MaxDailyTrades:    cfg.MaxDailyTrades,
		MinTradeInterval:  cfg.MinTradeInterval,
		MaxTradeAmountUSD: cfg.BaseAmountUSD,
		MinTradeAmountUSD: cfg.MinTradeAmountUSD,
		DailyLossLimitUSD: cfg.DailyLossLimitUSD,
		MinBalanceUSD:     cfg.MinBalanceUSD,
		MaxChange24hPct:   cfg.MaxChange24hPct,
		MinVolume24h:      cfg.MinVolume24h,
	}, binanceClient, repo.Fills(), appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk gate")
		log.Fatalf("FATAL: Failed to initialize risk gate: %v", err)
	}
	appLogger.Info(context.Background(), "Risk gate initialized")

	// 7. Initialize Portfolio Tracker
	tracker, err := portfolio.New(portfolio.Config{
		TrailingStopPct: cfg.TrailingStopPct,
		TakeProfitPct:   cfg.TakeProfitPct,
	}, repo, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize portfolio tracker")
		log.Fatalf("FATAL: Failed to initialize portfolio tracker: %v", err)
	}
	appLogger.Info(context.Background(), "Portfolio tracker initialized")

	// 8. Initialize Trading Agent
	agent, err := app.NewAgent(
		cfg,
		appLogger,
		binanceClient, // Pass the concrete implementation, agent expects the interface
		binanceClient, // Also serves price history via klines
		repo.Fills(),
		scorer,
		gate,
		tracker,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading agent")
		log.Fatalf("FATAL: Failed to initialize trading agent: %v", err)
	}
	appLogger.Info(context.Background(), "Trading agent initialized")

	// 9. Start the Agent
	// Use context.Background() as the base context for the application run
	if err := agent.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading agent exited with error")
		log.Fatalf("FATAL: Trading agent exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
