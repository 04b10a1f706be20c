package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"memeCoinBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading universe
	Symbols []string // e.g. DOGEUSDT,PEPEUSDT,SHIBUSDT

	// Scoring Parameters
	SMAFastPeriod          int
	SMASlowPeriod          int
	EMAFastPeriod          int
	EMASlowPeriod          int
	RSIPeriod              int
	RSIOverbought          float64
	RSIOversold            float64
	BBPeriod               int
	BBStdMult              float64
	MinPriceHistory        int
	VolatilityThresholdPct float64

	// Risk Parameters
	MinConfidence     float64
	MaxDailyTrades    int
	MinTradeInterval  time.Duration
	BaseAmountUSD     float64 // per-trade cap, scaled by confidence
	MinTradeAmountUSD float64
	DailyLossLimitUSD float64
	MinBalanceUSD     float64
	MaxChange24hPct   float64
	MinVolume24h      float64
	CooldownWindow    time.Duration // post-loss scoring cooldown

	// Position Monitoring
	TrailingStopPct float64
	TakeProfitPct   float64

	// Polling
	PollInterval   time.Duration
	PriceBatchSize int           // symbols refreshed per batch
	BatchPause     time.Duration // pause between batches, throttles API use

	// Market data
	KlineInterval string

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" or "json"
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Trading universe
	symbolsStr := getEnv("SYMBOLS", "DOGEUSDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must name at least one symbol")
	}

	// Scoring Parameters
	cfg.SMAFastPeriod = getEnvAsInt("SMA_FAST_PERIOD", 5)
	cfg.SMASlowPeriod = getEnvAsInt("SMA_SLOW_PERIOD", 10)
	cfg.EMAFastPeriod = getEnvAsInt("EMA_FAST_PERIOD", 5)
	cfg.EMASlowPeriod = getEnvAsInt("EMA_SLOW_PERIOD", 10)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", 70.0)
	cfg.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", 30.0)
	cfg.BBPeriod = getEnvAsInt("BB_PERIOD", 20)
	cfg.BBStdMult = getEnvAsFloat("BB_STD_MULT", 2.0)
	cfg.MinPriceHistory = getEnvAsInt("MIN_PRICE_HISTORY", 10)
	cfg.VolatilityThresholdPct = getEnvAsFloat("VOLATILITY_THRESHOLD_PCT", 3.0)

	if cfg.SMAFastPeriod <= 0 || cfg.SMASlowPeriod <= 0 || cfg.EMAFastPeriod <= 0 ||
		cfg.EMASlowPeriod <= 0 || cfg.RSIPeriod <= 0 || cfg.BBPeriod <= 0 {
		errs = append(errs, "indicator periods (SMA, EMA, RSI, BB) must be positive")
	}
	if cfg.SMAFastPeriod >= cfg.SMASlowPeriod {
		errs = append(errs, "SMA_FAST_PERIOD must be less than SMA_SLOW_PERIOD")
	}
	if cfg.EMAFastPeriod >= cfg.EMASlowPeriod {
		errs = append(errs, "EMA_FAST_PERIOD must be less than EMA_SLOW_PERIOD")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}

	// Risk Parameters
	cfg.MinConfidence, err = getEnvAsFloatRequired("MIN_CONFIDENCE", 0.45)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CONFIDENCE: %v", err))
	} else if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0.0 and 1.0")
	}

	cfg.MaxDailyTrades, err = getEnvAsIntRequired("MAX_DAILY_TRADES", 20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_TRADES: %v", err))
	} else if cfg.MaxDailyTrades <= 0 {
		errs = append(errs, "MAX_DAILY_TRADES must be positive")
	}

	minIntervalSeconds := getEnvAsInt("MIN_TRADE_INTERVAL_SECONDS", 180)
	if minIntervalSeconds < 0 {
		errs = append(errs, "MIN_TRADE_INTERVAL_SECONDS cannot be negative")
	}
	cfg.MinTradeInterval = time.Duration(minIntervalSeconds) * time.Second

	cfg.BaseAmountUSD, err = getEnvAsFloatRequired("BASE_AMOUNT_USD", 25.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BASE_AMOUNT_USD: %v", err))
	} else if cfg.BaseAmountUSD <= 0 {
		errs = append(errs, "BASE_AMOUNT_USD must be positive")
	}

	cfg.MinTradeAmountUSD = getEnvAsFloat("MIN_TRADE_AMOUNT_USD", 1.0)
	if cfg.MinTradeAmountUSD <= 0 {
		errs = append(errs, "MIN_TRADE_AMOUNT_USD must be positive")
	}

	cfg.DailyLossLimitUSD, err = getEnvAsFloatRequired("DAILY_LOSS_LIMIT_USD", 15.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_LOSS_LIMIT_USD: %v", err))
	} else if cfg.DailyLossLimitUSD <= 0 {
		errs = append(errs, "DAILY_LOSS_LIMIT_USD must be positive")
	}

	cfg.MinBalanceUSD = getEnvAsFloat("MIN_BALANCE_USD", 10.0)
	if cfg.MinBalanceUSD < 0 {
		errs = append(errs, "MIN_BALANCE_USD cannot be negative")
	}

	cfg.MaxChange24hPct = getEnvAsFloat("MAX_CHANGE_24H_PCT", 10.0)
	if cfg.MaxChange24hPct <= 0 {
		errs = append(errs, "MAX_CHANGE_24H_PCT must be positive")
	}

	cfg.MinVolume24h = getEnvAsFloat("MIN_VOLUME_24H", 1_000_000)
	if cfg.MinVolume24h < 0 {
		errs = append(errs, "MIN_VOLUME_24H cannot be negative")
	}

	cooldownMinutes := getEnvAsInt("COOLDOWN_MINUTES", 30)
	if cooldownMinutes < 0 {
		errs = append(errs, "COOLDOWN_MINUTES cannot be negative")
	}
	cfg.CooldownWindow = time.Duration(cooldownMinutes) * time.Minute

	// Position Monitoring
	cfg.TrailingStopPct = getEnvAsFloat("TRAILING_STOP_PCT", 1.0)
	if cfg.TrailingStopPct <= 0 {
		errs = append(errs, "TRAILING_STOP_PCT must be positive")
	}
	cfg.TakeProfitPct = getEnvAsFloat("TAKE_PROFIT_PCT", 15.0)
	if cfg.TakeProfitPct <= 0 {
		errs = append(errs, "TAKE_PROFIT_PCT must be positive")
	}

	// Polling
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 20)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	cfg.PriceBatchSize = getEnvAsInt("PRICE_BATCH_SIZE", 5)
	if cfg.PriceBatchSize <= 0 {
		errs = append(errs, "PRICE_BATCH_SIZE must be positive")
	}
	batchPauseMs := getEnvAsInt("BATCH_PAUSE_MS", 500)
	if batchPauseMs < 0 {
		errs = append(errs, "BATCH_PAUSE_MS cannot be negative")
	}
	cfg.BatchPause = time.Duration(batchPauseMs) * time.Millisecond

	// Market data
	cfg.KlineInterval = getEnv("KLINE_INTERVAL", "5m")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/meme_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
