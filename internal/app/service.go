package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memeCoinBot/config"
	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/portfolio"
	"memeCoinBot/internal/ports"
	"memeCoinBot/internal/risk"
)

// Portfolio status is logged on every statusLogEvery-th cycle.
const statusLogEvery = 10

// Agent runs the trading loop: each cycle it refreshes open positions,
// acts on alerts, scores each configured symbol and routes approved
// candidates to the exchange. All state is owned by the single loop
// goroutine; cancellation is cooperative via the context.
type Agent struct {
	cfg      *config.Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	market   ports.MarketDataSource
	fills    ports.FillRepository
	scorer   ports.SignalScorer
	gate     *risk.Gate
	tracker  *portfolio.Tracker

	state      risk.State
	cycleCount int
}

// NewAgent creates the trading agent.
func NewAgent(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	market ports.MarketDataSource,
	fills ports.FillRepository,
	scorer ports.SignalScorer,
	gate *risk.Gate,
	tracker *portfolio.Tracker,
) (*Agent, error) {
	if cfg == nil || logger == nil || exchange == nil || market == nil ||
		fills == nil || scorer == nil || gate == nil || tracker == nil {
		return nil, fmt.Errorf("missing required dependencies for Agent")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("configuration must name at least one symbol")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("configuration PollInterval must be positive")
	}
	return &Agent{
		cfg:      cfg,
		logger:   logger,
		exchange: exchange,
		market:   market,
		fills:    fills,
		scorer:   scorer,
		gate:     gate,
		tracker:  tracker,
	}, nil
}

// Start runs the polling loop until the context is cancelled or a shutdown
// signal arrives. It returns nil on a clean shutdown.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info(ctx, "Starting trading agent", map[string]interface{}{
		"symbols":      a.cfg.Symbols,
		"pollInterval": a.cfg.PollInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			a.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.exchange.Ping(ctx); err != nil {
		return fmt.Errorf("exchange unreachable at startup: %w", err)
	}

	if err := a.restoreState(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		a.runCycle(ctx, time.Now())
		select {
		case <-ctx.Done():
			a.logger.Info(ctx, "Trading agent stopping")
			a.tracker.Flush(context.Background())
			return nil
		case <-ticker.C:
		}
	}
}

// restoreState loads persisted positions and rebuilds any that are missing
// from storage by replaying the fill log.
func (a *Agent) restoreState(ctx context.Context) error {
	if err := a.tracker.Load(ctx); err != nil {
		return fmt.Errorf("restoring positions: %w", err)
	}
	allFills, err := a.fills.FindAll(ctx)
	if err != nil {
		// Reconstruction is a best-effort supplement to the position table.
		a.logger.Error(ctx, err, "Could not read fill log for position reconstruction")
		return nil
	}
	if rebuilt := a.tracker.Reconstruct(ctx, allFills); rebuilt > 0 {
		a.logger.Warn(ctx, "Rebuilt positions missing from storage", map[string]interface{}{"count": rebuilt})
	}
	return nil
}

// runCycle executes one full iteration. Every failure inside degrades to
// skipping the affected symbol or step; the loop itself never stops on an
// exchange or persistence error.
func (a *Agent) runCycle(ctx context.Context, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	a.cycleCount++
	if a.state.ResetIfNewDay(now) {
		a.logger.Info(ctx, "Daily counters reset", map[string]interface{}{"day": a.state.Day.Format("2006-01-02")})
	}

	a.refreshPositions(ctx, now)
	a.handleAlerts(ctx, now)
	a.evaluateSymbols(ctx, now)

	if a.cycleCount%statusLogEvery == 0 {
		a.logPortfolioStatus(ctx, now)
	}
}

// refreshPositions updates open positions with fresh prices in bounded
// batches, pausing between batches to stay inside API rate limits.
func (a *Agent) refreshPositions(ctx context.Context, now time.Time) {
	symbols := a.tracker.Symbols()
	for start := 0; start < len(symbols); start += a.cfg.PriceBatchSize {
		if start > 0 && a.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.cfg.BatchPause):
			}
		}
		end := start + a.cfg.PriceBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		for _, symbol := range symbols[start:end] {
			ticker, err := a.exchange.GetTicker(ctx, symbol)
			if err != nil {
				a.logger.Warn(ctx, "Price refresh failed, keeping last known price", map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				})
				continue
			}
			if err := a.tracker.UpdatePrice(ctx, symbol, ticker.LastPrice, now); err != nil {
				a.logger.Error(ctx, err, "Failed to apply refreshed price", map[string]interface{}{"symbol": symbol})
			}
		}
	}
}

// handleAlerts liquidates every position the tracker flags. Both alert types
// exit the full position; a duplicate alert for a symbol already sold this
// pass is skipped.
func (a *Agent) handleAlerts(ctx context.Context, now time.Time) {
	sold := make(map[string]bool)
	for _, alert := range a.tracker.CheckAlerts(ctx) {
		a.logger.Warn(ctx, "Position alert", map[string]interface{}{
			"type":            string(alert.Type),
			"symbol":          alert.Symbol,
			"message":         alert.Message,
			"recommendation":  alert.Recommendation,
			"performancePct":  alert.PerformancePct,
			"dropFromPeakPct": alert.DropFromPeakPct,
		})
		if sold[alert.Symbol] {
			continue
		}
		if err := a.liquidate(ctx, alert.Symbol, now); err != nil {
			a.logger.Error(ctx, err, "Failed to liquidate position on alert", map[string]interface{}{
				"symbol": alert.Symbol,
				"type":   string(alert.Type),
			})
			continue
		}
		sold[alert.Symbol] = true
	}
}

// liquidate sells the full position and records the resulting fill. A loss
// starts the post-loss cooldown.
func (a *Agent) liquidate(ctx context.Context, symbol string, now time.Time) error {
	pos := a.tracker.Position(symbol)
	if pos == nil {
		return fmt.Errorf("%w: %s", ports.ErrPositionNotFound, symbol)
	}

	order, err := a.exchange.PlaceMarketOrder(ctx, symbol, domain.Sell, pos.Quantity)
	if err != nil {
		return fmt.Errorf("sell order for %s: %w", symbol, err)
	}
	fillPrice := order.FillPrice
	if fillPrice == 0 {
		fillPrice = pos.CurrentPrice
	}
	filledQty := order.ExecutedQty
	if filledQty == 0 {
		filledQty = pos.Quantity
	}

	// A zero-quantity sell fill would leave the buy unmatched in the log,
	// so reconstruction would reopen the position after a restart.
	a.recordFill(ctx, &domain.Fill{
		Symbol:    symbol,
		Side:      domain.Sell,
		Quantity:  filledQty,
		Price:     fillPrice,
		Timestamp: now,
	})

	pnl := (fillPrice - pos.BuyPrice) * pos.Quantity
	if pnl < 0 {
		a.state.RecordLoss(now)
	}
	a.logger.Info(ctx, "Position liquidated", map[string]interface{}{
		"symbol":    symbol,
		"fillPrice": fillPrice,
		"pnl":       pnl,
	})

	return a.tracker.RemovePosition(ctx, symbol)
}

// evaluateSymbols scores each configured symbol and routes approved BUY
// candidates to the exchange. A SELL signal on an open position liquidates
// it through the same path as an alert.
func (a *Agent) evaluateSymbols(ctx context.Context, now time.Time) {
	for _, symbol := range a.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		market, err := a.buildMarketState(ctx, symbol, now)
		if err != nil {
			a.logger.Warn(ctx, "Skipping symbol this cycle", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}

		inCooldown := a.state.InCooldown(now, a.cfg.CooldownWindow)
		sig := a.scorer.Score(ctx, market, inCooldown)

		switch sig.Action {
		case domain.ActionBuy:
			if a.tracker.Position(symbol) != nil {
				a.logger.Debug(ctx, "BUY signal ignored, position already open", map[string]interface{}{"symbol": symbol})
				continue
			}
			a.executeBuy(ctx, sig, now)
		case domain.ActionSell:
			if a.tracker.Position(symbol) == nil {
				continue
			}
			a.logger.Info(ctx, "SELL signal on open position", map[string]interface{}{
				"symbol":     symbol,
				"confidence": sig.Confidence,
				"reason":     sig.Reason,
			})
			if err := a.liquidate(ctx, symbol, now); err != nil {
				a.logger.Error(ctx, err, "Failed to liquidate on SELL signal", map[string]interface{}{"symbol": symbol})
			}
		}
	}
}

// buildMarketState assembles the scorer input for one symbol from the ticker
// and the historical price series.
func (a *Agent) buildMarketState(ctx context.Context, symbol string, now time.Time) (domain.MarketState, error) {
	ticker, err := a.exchange.GetTicker(ctx, symbol)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("fetching ticker: %w", err)
	}
	history, err := a.market.GetPriceHistory(ctx, symbol, a.scorer.MinDataPoints())
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("fetching price history: %w", err)
	}
	return domain.MarketState{
		Symbol:        symbol,
		CurrentPrice:  ticker.LastPrice,
		PriceHistory:  history,
		Volume24h:     ticker.Volume24h,
		Change24hPct:  ticker.ChangePct24h,
		VolatilityPct: volatilityPct(history),
		Timestamp:     now,
	}, nil
}

// executeBuy runs the risk gates and, if approved, places the order, records
// the fill and opens the tracked position.
func (a *Agent) executeBuy(ctx context.Context, sig domain.TradingSignal, now time.Time) {
	ok, reason := a.gate.ShouldExecute(ctx, sig, &a.state, now)
	if !ok {
		a.logger.Debug(ctx, "BUY candidate dropped this cycle", map[string]interface{}{
			"symbol": sig.Symbol,
			"reason": reason,
		})
		return
	}

	check := a.gate.ComprehensiveCheck(ctx, risk.TradeCandidate{
		Symbol:    sig.Symbol,
		Action:    sig.Action,
		AmountUSD: sig.AmountUSD,
		Price:     sig.Price,
	}, now)
	switch check.OverallStatus {
	case risk.StatusApproved:
	case risk.StatusApprovedWithWarnings:
		a.logger.Warn(ctx, "Trade approved with warnings", map[string]interface{}{
			"symbol":   sig.Symbol,
			"warnings": check.Warnings,
		})
	default:
		a.logger.Info(ctx, "Trade rejected by comprehensive risk check", map[string]interface{}{
			"symbol": sig.Symbol,
			"status": string(check.OverallStatus),
			"errors": check.Errors,
		})
		return
	}

	if sig.Price <= 0 {
		a.logger.Error(ctx, ports.ErrInvalidRequest, "Signal carries no price, cannot size order", map[string]interface{}{"symbol": sig.Symbol})
		return
	}
	quantity := sig.AmountUSD / sig.Price

	order, err := a.exchange.PlaceMarketOrder(ctx, sig.Symbol, domain.Buy, quantity)
	if err != nil {
		a.logger.Error(ctx, err, "Buy order failed", map[string]interface{}{"symbol": sig.Symbol})
		return
	}
	fillPrice := order.FillPrice
	if fillPrice == 0 {
		fillPrice = sig.Price
	}
	filledQty := order.ExecutedQty
	if filledQty == 0 {
		filledQty = quantity
	}

	a.recordFill(ctx, &domain.Fill{
		Symbol:    sig.Symbol,
		Side:      domain.Buy,
		Quantity:  filledQty,
		Price:     fillPrice,
		Timestamp: now,
	})

	tradeID := ""
	if order.OrderID != 0 {
		tradeID = fmt.Sprintf("%d", order.OrderID)
	}
	if _, err := a.tracker.AddPosition(ctx, sig.Symbol, fillPrice, filledQty, now, tradeID); err != nil {
		a.logger.Error(ctx, err, "Order filled but position could not be tracked", map[string]interface{}{"symbol": sig.Symbol})
	}
	a.state.RecordTrade(now)

	a.logger.Info(ctx, "Position opened from signal", map[string]interface{}{
		"symbol":     sig.Symbol,
		"confidence": sig.Confidence,
		"amountUSD":  sig.AmountUSD,
		"fillPrice":  fillPrice,
		"quantity":   filledQty,
		"reason":     sig.Reason,
	})
}

// recordFill appends to the fill log. Losing a fill record skews daily P&L
// and reconstruction, so failures are logged loudly but never abort the
// trade that already happened.
func (a *Agent) recordFill(ctx context.Context, fill *domain.Fill) {
	if _, err := a.fills.Append(ctx, fill); err != nil {
		a.logger.Error(ctx, err, "Failed to record fill", map[string]interface{}{
			"symbol": fill.Symbol,
			"side":   string(fill.Side),
		})
	}
}

func (a *Agent) logPortfolioStatus(ctx context.Context, now time.Time) {
	report := a.tracker.PortfolioPerformance(now)
	fields := map[string]interface{}{
		"cycle":         a.cycleCount,
		"openPositions": report.OpenPositions,
		"totalValueUSD": report.TotalValueUSD,
		"totalPnLUSD":   report.TotalPnLUSD,
		"totalPnLPct":   report.TotalPnLPct,
		"tradesToday":   a.state.DailyTradeCount,
	}
	for _, pos := range report.Positions {
		fields[pos.Symbol] = fmt.Sprintf("%.2f%% (%s)", pos.PerformancePct, pos.Status)
	}
	a.logger.Info(ctx, "Portfolio status", fields)
}

// volatilityPct is the population standard deviation of step-to-step
// percentage returns over the price history.
func volatilityPct(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1]*100)
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}
