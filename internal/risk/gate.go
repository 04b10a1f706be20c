package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"
)

// Status is the overall verdict of a comprehensive risk check.
type Status string

const (
	StatusApproved             Status = "APPROVED"
	StatusApprovedWithWarnings Status = "APPROVED_WITH_WARNINGS"
	StatusRejected             Status = "REJECTED"
	StatusError                Status = "ERROR"
)

// Check statuses for individual sub-checks.
const (
	CheckPass = "PASS"
	CheckFail = "FAIL"
)

// Fraction of the daily loss limit at which approval carries a warning.
const lossWarningBand = 0.8

// Check records the outcome of one independent risk sub-check.
type Check struct {
	Name     string
	Status   string
	Message  string
	Value    float64
	HasValue bool
}

// CheckResult is the full audit record produced for one trade candidate.
type CheckResult struct {
	OverallStatus Status
	Checks        []Check
	Warnings      []string
	Errors        []string
	Timestamp     time.Time
}

// TradeCandidate describes an order about to be risk-checked.
type TradeCandidate struct {
	Symbol    string
	Action    domain.SignalAction
	AmountUSD float64
	Price     float64
}

// Config holds the gate thresholds.
type Config struct {
	MinConfidence     float64
	MaxDailyTrades    int
	MinTradeInterval  time.Duration
	MaxTradeAmountUSD float64
	MinTradeAmountUSD float64
	DailyLossLimitUSD float64
	MinBalanceUSD     float64
	MaxChange24hPct   float64 // absolute 24h change ceiling
	MinVolume24h      float64 // 24h base-asset volume floor
}

// Gate approves or rejects trade candidates. The fast path (ShouldExecute)
// consults only in-memory state; the deep path (ComprehensiveCheck) also
// queries the exchange and the fill log.
type Gate struct {
	cfg      Config
	exchange ports.ExchangeClient
	fills    ports.FillRepository
	logger   ports.Logger
}

// New creates a risk gate, validating the configuration.
func New(cfg Config, exchange ports.ExchangeClient, fills ports.FillRepository, logger ports.Logger) (*Gate, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if exchange == nil {
		return nil, fmt.Errorf("%w: exchange client is required", ports.ErrConfigurationError)
	}
	if fills == nil {
		return nil, fmt.Errorf("%w: fill repository is required", ports.ErrConfigurationError)
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("%w: min confidence must be in (0, 1]", ports.ErrConfigurationError)
	}
	if cfg.MaxDailyTrades <= 0 {
		return nil, fmt.Errorf("%w: max daily trades must be positive", ports.ErrConfigurationError)
	}
	if cfg.MaxTradeAmountUSD <= 0 || cfg.MinTradeAmountUSD <= 0 {
		return nil, fmt.Errorf("%w: trade amount bounds must be positive", ports.ErrConfigurationError)
	}
	if cfg.MinTradeAmountUSD > cfg.MaxTradeAmountUSD {
		return nil, fmt.Errorf("%w: min trade amount exceeds max", ports.ErrConfigurationError)
	}
	if cfg.DailyLossLimitUSD <= 0 {
		return nil, fmt.Errorf("%w: daily loss limit must be positive", ports.ErrConfigurationError)
	}
	return &Gate{cfg: cfg, exchange: exchange, fills: fills, logger: logger}, nil
}

// ShouldExecute applies the fast rate-limit gates to a signal. It reads the
// strategy state but never mutates it: counters are only advanced by the
// caller after a confirmed fill. The returned reason names the first gate
// that failed, or "all gates passed".
func (g *Gate) ShouldExecute(ctx context.Context, sig domain.TradingSignal, st *State, now time.Time) (bool, string) {
	var reason string
	switch {
	case sig.Action == domain.ActionHold:
		reason = "action is HOLD"
	case sig.Confidence < g.cfg.MinConfidence:
		reason = fmt.Sprintf("confidence %.2f below minimum %.2f", sig.Confidence, g.cfg.MinConfidence)
	case st.DailyTradeCount >= g.cfg.MaxDailyTrades:
		reason = fmt.Sprintf("daily trade limit reached (%d of %d)", st.DailyTradeCount, g.cfg.MaxDailyTrades)
	case !st.LastTradeTime.IsZero() && now.Sub(st.LastTradeTime) < g.cfg.MinTradeInterval:
		reason = fmt.Sprintf("only %s since last trade, minimum interval %s", now.Sub(st.LastTradeTime).Round(time.Second), g.cfg.MinTradeInterval)
	default:
		return true, "all gates passed"
	}

	g.logger.Info(ctx, "Trade candidate rejected by rate gate", map[string]interface{}{
		"symbol":     sig.Symbol,
		"action":     sig.Action,
		"confidence": sig.Confidence,
		"reason":     reason,
	})
	return false, reason
}

// ComprehensiveCheck runs the deep, independent pre-order checks against a
// trade candidate. Every check outcome is retained in the result for audit
// logging. A failure to reach the exchange or the fill log yields overall
// status ERROR rather than a rejection: the caller cannot distinguish a bad
// trade from a blind gate, so it must not proceed either way.
func (g *Gate) ComprehensiveCheck(ctx context.Context, cand TradeCandidate, now time.Time) CheckResult {
	res := CheckResult{OverallStatus: StatusApproved, Timestamp: now}
	evalFailed := false

	g.checkAmount(&res, cand)

	if err := g.checkDailyLimits(ctx, &res, now); err != nil {
		g.logger.Error(ctx, err, "Daily limit check could not be evaluated", map[string]interface{}{"symbol": cand.Symbol})
		evalFailed = true
	}
	if err := g.checkBalance(ctx, &res); err != nil {
		g.logger.Error(ctx, err, "Balance check could not be evaluated", map[string]interface{}{"symbol": cand.Symbol})
		evalFailed = true
	}
	if err := g.checkMarket(ctx, &res, cand.Symbol); err != nil {
		g.logger.Error(ctx, err, "Market sanity check could not be evaluated", map[string]interface{}{"symbol": cand.Symbol})
		evalFailed = true
	}

	switch {
	case evalFailed:
		res.OverallStatus = StatusError
	case len(res.Errors) > 0:
		res.OverallStatus = StatusRejected
	case len(res.Warnings) > 0:
		res.OverallStatus = StatusApprovedWithWarnings
	}

	g.logger.Info(ctx, "Comprehensive risk check completed", map[string]interface{}{
		"symbol":   cand.Symbol,
		"status":   res.OverallStatus,
		"checks":   len(res.Checks),
		"warnings": len(res.Warnings),
		"errors":   len(res.Errors),
	})
	return res
}

func (r *CheckResult) record(name, status, message string) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Message: message})
	if status == CheckFail {
		r.Errors = append(r.Errors, message)
	}
}

func (r *CheckResult) recordValue(name, status, message string, value float64) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Message: message, Value: value, HasValue: true})
	if status == CheckFail {
		r.Errors = append(r.Errors, message)
	}
}

func (g *Gate) checkAmount(res *CheckResult, cand TradeCandidate) {
	switch {
	case cand.AmountUSD <= 0:
		res.recordValue("amount_validity", CheckFail, "trade amount must be positive", cand.AmountUSD)
	case cand.AmountUSD < g.cfg.MinTradeAmountUSD:
		res.recordValue("amount_validity", CheckFail,
			fmt.Sprintf("trade amount $%.2f below minimum $%.2f", cand.AmountUSD, g.cfg.MinTradeAmountUSD), cand.AmountUSD)
	case cand.AmountUSD > g.cfg.MaxTradeAmountUSD:
		res.recordValue("amount_validity", CheckFail,
			fmt.Sprintf("trade amount $%.2f exceeds maximum $%.2f", cand.AmountUSD, g.cfg.MaxTradeAmountUSD), cand.AmountUSD)
	default:
		res.recordValue("amount_validity", CheckPass,
			fmt.Sprintf("trade amount $%.2f within bounds", cand.AmountUSD), cand.AmountUSD)
	}
}

func (g *Gate) checkDailyLimits(ctx context.Context, res *CheckResult, now time.Time) error {
	fills, err := g.fills.FindByDay(ctx, now)
	if err != nil {
		return fmt.Errorf("loading today's fills: %w", err)
	}
	pnl := DailyRealizedPnL(fills)
	limit := g.cfg.DailyLossLimitUSD

	switch {
	case pnl < -limit:
		res.recordValue("daily_limits", CheckFail,
			fmt.Sprintf("daily realized P&L $%.2f breaches loss limit $%.2f", pnl, -limit), pnl)
	case pnl < -lossWarningBand*limit:
		msg := fmt.Sprintf("daily realized P&L $%.2f is within %.0f%% of loss limit $%.2f", pnl, lossWarningBand*100, -limit)
		res.recordValue("daily_limits", CheckPass, msg, pnl)
		res.Warnings = append(res.Warnings, msg)
	default:
		res.recordValue("daily_limits", CheckPass,
			fmt.Sprintf("daily realized P&L $%.2f within loss limit", pnl), pnl)
	}
	return nil
}

func (g *Gate) checkBalance(ctx context.Context, res *CheckResult) error {
	balances, err := g.exchange.GetBalances(ctx)
	if err != nil {
		return fmt.Errorf("fetching account balances: %w", err)
	}
	var stable float64
	for _, asset := range []string{"USDT", "BUSD"} {
		if b, ok := balances[asset]; ok {
			stable += b.Total()
		}
	}
	if stable < g.cfg.MinBalanceUSD {
		res.recordValue("balance", CheckFail,
			fmt.Sprintf("stable-coin balance $%.2f below minimum $%.2f", stable, g.cfg.MinBalanceUSD), stable)
		return nil
	}
	res.recordValue("balance", CheckPass,
		fmt.Sprintf("stable-coin balance $%.2f sufficient", stable), stable)
	return nil
}

func (g *Gate) checkMarket(ctx context.Context, res *CheckResult, symbol string) error {
	ticker, err := g.exchange.GetTicker(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetching ticker for %s: %w", symbol, err)
	}
	if ticker.LastPrice <= 0 {
		res.record("market_price", CheckFail, fmt.Sprintf("no last price reported for %s", symbol))
	} else {
		res.recordValue("market_price", CheckPass, fmt.Sprintf("last price %.8f", ticker.LastPrice), ticker.LastPrice)
	}

	if math.Abs(ticker.ChangePct24h) > g.cfg.MaxChange24hPct {
		res.recordValue("market_volatility", CheckFail,
			fmt.Sprintf("24h change %.2f%% exceeds ceiling %.2f%%", ticker.ChangePct24h, g.cfg.MaxChange24hPct), ticker.ChangePct24h)
	} else {
		res.recordValue("market_volatility", CheckPass,
			fmt.Sprintf("24h change %.2f%% within ceiling", ticker.ChangePct24h), ticker.ChangePct24h)
	}

	if ticker.Volume24h < g.cfg.MinVolume24h {
		res.recordValue("market_volume", CheckFail,
			fmt.Sprintf("24h volume %.0f below floor %.0f", ticker.Volume24h, g.cfg.MinVolume24h), ticker.Volume24h)
	} else {
		res.recordValue("market_volume", CheckPass,
			fmt.Sprintf("24h volume %.0f meets floor", ticker.Volume24h), ticker.Volume24h)
	}
	return nil
}
