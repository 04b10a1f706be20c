package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"memeCoinBot/internal/adapters/logger"
	"memeCoinBot/internal/adapters/sqlite"
	"memeCoinBot/internal/portfolio"

	"github.com/joho/godotenv"
)

// Prints a snapshot of the tracked portfolio from the bot database.
// Prices are the last ones the agent persisted, no exchange access needed.
func main() {
	_ = godotenv.Load()

	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/meme_bot.db"
	}
	dbPath := flag.String("db", defaultDB, "path to the bot SQLite database")
	trailingPct := flag.Float64("trailing", 1.0, "trailing stop percentage used for drop context")
	takeProfitPct := flag.Float64("takeprofit", 15.0, "take profit percentage used for gain context")
	flag.Parse()

	appLogger := logger.NewStdLogger(logger.LevelWarn)

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: *dbPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	tracker, err := portfolio.New(portfolio.Config{
		TrailingStopPct: *trailingPct,
		TakeProfitPct:   *takeProfitPct,
	}, repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize portfolio tracker: %v", err)
	}
	if err := tracker.Load(context.Background()); err != nil {
		log.Fatalf("FATAL: Failed to load positions: %v", err)
	}

	report := tracker.PortfolioPerformance(time.Now())
	if report.OpenPositions == 0 {
		fmt.Println("No open positions.")
		return
	}

	fmt.Printf("Open positions: %d\n\n", report.OpenPositions)
	fmt.Printf("%-12s %12s %12s %12s %9s %9s %9s %10s %5s\n",
		"SYMBOL", "BUY", "CURRENT", "PEAK", "PERF%", "DROP%", "PNL$", "STATUS", "DAYS")
	for _, p := range report.Positions {
		fmt.Printf("%-12s %12.8f %12.8f %12.8f %8.2f%% %8.2f%% %9.4f %10s %5d\n",
			p.Symbol, p.BuyPrice, p.CurrentPrice, p.PeakPrice,
			p.PerformancePct, p.DropFromPeakPct, p.PnLUSD, p.Status, p.DaysHeld)
	}

	fmt.Printf("\nTotal cost:  $%.2f\n", report.TotalCostUSD)
	fmt.Printf("Total value: $%.2f\n", report.TotalValueUSD)
	fmt.Printf("Total P&L:   $%.2f (%.2f%%)\n", report.TotalPnLUSD, report.TotalPnLPct)

	// Alert conditions are derived from the report so the read path never
	// touches the persisted trailing-stop flags.
	for _, p := range report.Positions {
		if p.CurrentPrice <= 0 {
			continue
		}
		if p.DropFromPeakPct <= -*trailingPct {
			fmt.Printf("\nALERT %s: down %.2f%% from peak %.8f, trailing stop threshold %.2f%% hit\n",
				p.Symbol, -p.DropFromPeakPct, p.PeakPrice, *trailingPct)
		}
		if p.PerformancePct >= *takeProfitPct {
			fmt.Printf("\nALERT %s: up %.2f%% from buy price %.8f, take profit threshold %.2f%% hit\n",
				p.Symbol, p.PerformancePct, p.BuyPrice, *takeProfitPct)
		}
	}
}
