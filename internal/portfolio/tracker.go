package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"

	"github.com/shopspring/decimal"
)

// Config holds the alert thresholds for tracked positions.
type Config struct {
	TrailingStopPct float64 // retracement from peak that fires a trailing stop, in percent
	TakeProfitPct   float64 // gain from buy price that fires a take profit, in percent
}

// PerformanceReport is a rounded snapshot of one position's return.
// Percentages carry 2 decimals, P&L 4, quote values 2 and prices 8.
type PerformanceReport struct {
	Symbol             string
	BuyPrice           float64
	CurrentPrice       float64
	PeakPrice          float64
	Quantity           float64
	CostUSD            float64
	ValueUSD           float64
	PnLUSD             float64
	PerformancePct     float64
	PeakPerformancePct float64
	DropFromPeakPct    float64
	Status             domain.PerformanceStatus
	DaysHeld           int
}

// PortfolioReport aggregates the performance of every open position.
type PortfolioReport struct {
	Positions     []PerformanceReport
	OpenPositions int
	TotalCostUSD  float64
	TotalValueUSD float64
	TotalPnLUSD   float64
	TotalPnLPct   float64
}

// Tracker maintains the in-memory set of open positions, ratchets their peak
// prices and emits trailing-stop/take-profit alerts. The in-memory state is
// authoritative; the repository is a write-through backup so peak history
// survives a restart. Persistence failures are logged loudly but never fail
// the caller.
type Tracker struct {
	cfg       Config
	repo      ports.PositionRepository
	logger    ports.Logger
	positions map[string]*domain.Position
}

// New creates a tracker, validating the configuration.
func New(cfg Config, repo ports.PositionRepository, logger ports.Logger) (*Tracker, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if repo == nil {
		return nil, fmt.Errorf("%w: position repository is required", ports.ErrConfigurationError)
	}
	if cfg.TrailingStopPct <= 0 {
		return nil, fmt.Errorf("%w: trailing stop percentage must be positive", ports.ErrConfigurationError)
	}
	if cfg.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("%w: take profit percentage must be positive", ports.ErrConfigurationError)
	}
	return &Tracker{
		cfg:       cfg,
		repo:      repo,
		logger:    logger,
		positions: make(map[string]*domain.Position),
	}, nil
}

// Load restores the open positions from the repository.
func (t *Tracker) Load(ctx context.Context) error {
	stored, err := t.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading positions: %w", err)
	}
	t.positions = make(map[string]*domain.Position, len(stored))
	for _, pos := range stored {
		t.positions[pos.Symbol] = pos
	}
	t.logger.Info(ctx, "Positions restored from storage", map[string]interface{}{"count": len(stored)})
	return nil
}

// Reconstruct rebuilds open positions that are missing from storage by
// replaying the fill log: symbols with a net bought quantity become positions
// priced at the weighted-average cost of the unmatched buys, dated at the
// first contributing buy. The peak restarts at the buy price, so a
// reconstructed position temporarily loses trailing-stop history.
func (t *Tracker) Reconstruct(ctx context.Context, fills []*domain.Fill) int {
	type book struct {
		qty   float64
		avg   float64
		since time.Time
	}
	books := make(map[string]*book)
	for _, f := range fills {
		b, ok := books[f.Symbol]
		if !ok {
			b = &book{}
			books[f.Symbol] = b
		}
		switch f.Side {
		case domain.Buy:
			if b.qty == 0 {
				b.since = f.Timestamp
			}
			total := b.qty + f.Quantity
			if total > 0 {
				b.avg = (b.avg*b.qty + f.Price*f.Quantity) / total
			}
			b.qty = total
		case domain.Sell:
			b.qty -= f.Quantity
			if b.qty <= 0 {
				b.qty = 0
				b.avg = 0
			}
		}
	}

	rebuilt := 0
	for symbol, b := range books {
		if b.qty <= 0 {
			continue
		}
		if _, exists := t.positions[symbol]; exists {
			continue
		}
		pos := domain.NewPosition(symbol, b.avg, b.qty, b.since, "")
		t.positions[symbol] = pos
		t.persist(ctx, pos)
		rebuilt++
		t.logger.Warn(ctx, "Position reconstructed from fill log, peak history lost", map[string]interface{}{
			"symbol":   symbol,
			"quantity": b.qty,
			"buyPrice": b.avg,
		})
	}
	return rebuilt
}

// AddPosition opens a position for a symbol. Opening a symbol that already
// has an open position is rejected with ErrPositionExists.
func (t *Tracker) AddPosition(ctx context.Context, symbol string, buyPrice, quantity float64, buyDate time.Time, tradeID string) (*domain.Position, error) {
	if symbol == "" || buyPrice <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("%w: symbol, buy price and quantity are required", ports.ErrInvalidRequest)
	}
	if _, exists := t.positions[symbol]; exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrPositionExists, symbol)
	}
	pos := domain.NewPosition(symbol, buyPrice, quantity, buyDate, tradeID)
	t.positions[symbol] = pos
	t.persist(ctx, pos)
	t.logger.Info(ctx, "Position opened", map[string]interface{}{
		"symbol":   symbol,
		"buyPrice": buyPrice,
		"quantity": quantity,
		"tradeID":  tradeID,
	})
	return pos, nil
}

// RemovePosition closes a position, removing it from memory and storage.
func (t *Tracker) RemovePosition(ctx context.Context, symbol string) error {
	pos, exists := t.positions[symbol]
	if !exists {
		return fmt.Errorf("%w: %s", ports.ErrPositionNotFound, symbol)
	}
	delete(t.positions, symbol)
	if err := t.repo.Delete(ctx, symbol); err != nil {
		t.logger.Error(ctx, err, "Failed to delete stored position", map[string]interface{}{"symbol": symbol})
	}
	t.logger.Info(ctx, "Position closed", map[string]interface{}{
		"symbol":         symbol,
		"performancePct": pos.PerformancePct(),
	})
	return nil
}

// UpdatePrice applies a fresh market price to a position, ratcheting the peak.
func (t *Tracker) UpdatePrice(ctx context.Context, symbol string, price float64, now time.Time) error {
	pos, exists := t.positions[symbol]
	if !exists {
		return fmt.Errorf("%w: %s", ports.ErrPositionNotFound, symbol)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ports.ErrInvalidRequest)
	}
	newPeak := pos.ApplyPrice(price, now)
	t.persist(ctx, pos)
	if newPeak {
		t.logger.Debug(ctx, "New peak price", map[string]interface{}{
			"symbol":             symbol,
			"peakPrice":          pos.PeakPrice,
			"peakPerformancePct": pos.PeakPerformancePct,
		})
	}
	return nil
}

// Position returns the open position for a symbol, or nil.
func (t *Tracker) Position(symbol string) *domain.Position {
	return t.positions[symbol]
}

// Symbols returns the symbols with open positions, sorted for stable output.
func (t *Tracker) Symbols() []string {
	out := make([]string, 0, len(t.positions))
	for s := range t.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Performance builds the rounded report for one position. Calling it twice
// without an intervening price update yields identical output.
func (t *Tracker) Performance(symbol string, now time.Time) (*PerformanceReport, error) {
	pos, exists := t.positions[symbol]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrPositionNotFound, symbol)
	}
	report := buildReport(pos, now)
	return &report, nil
}

// PortfolioPerformance aggregates every open position into one report.
func (t *Tracker) PortfolioPerformance(now time.Time) *PortfolioReport {
	out := &PortfolioReport{OpenPositions: len(t.positions)}
	for _, symbol := range t.Symbols() {
		r := buildReport(t.positions[symbol], now)
		out.Positions = append(out.Positions, r)
		out.TotalCostUSD += r.CostUSD
		out.TotalValueUSD += r.ValueUSD
		out.TotalPnLUSD += r.PnLUSD
	}
	out.TotalCostUSD = round2(out.TotalCostUSD)
	out.TotalValueUSD = round2(out.TotalValueUSD)
	out.TotalPnLUSD = roundTo(out.TotalPnLUSD, 4)
	if out.TotalCostUSD > 0 {
		out.TotalPnLPct = round2(out.TotalPnLUSD / out.TotalCostUSD * 100)
	}
	return out
}

// CheckAlerts scans every position with a known price and returns the fired
// alerts. A trailing stop fires on any retracement from the peak beyond the
// threshold, even while the position is still below its buy price. A take
// profit fires on the gain from the buy price, independent of the peak.
func (t *Tracker) CheckAlerts(ctx context.Context) []domain.Alert {
	var alerts []domain.Alert
	for _, symbol := range t.Symbols() {
		pos := t.positions[symbol]
		if pos.CurrentPrice <= 0 {
			continue
		}

		drop := pos.DropFromPeakPct()
		perf := pos.PerformancePct()

		if drop <= -t.cfg.TrailingStopPct {
			alerts = append(alerts, domain.Alert{
				Type:   domain.AlertTrailingStop,
				Symbol: symbol,
				Message: fmt.Sprintf("%s slipped %.2f%% from peak %.8f to %.8f",
					symbol, -drop, pos.PeakPrice, pos.CurrentPrice),
				Recommendation:     "sell to protect against further retracement",
				CurrentPrice:       pos.CurrentPrice,
				PeakPrice:          pos.PeakPrice,
				PerformancePct:     round2(perf),
				PeakPerformancePct: round2(pos.PeakPerformancePct),
				DropFromPeakPct:    round2(drop),
				ThresholdPct:       t.cfg.TrailingStopPct,
			})
			if !pos.TrailingStopTriggered {
				pos.TrailingStopTriggered = true
				t.persist(ctx, pos)
			}
		}

		if perf >= t.cfg.TakeProfitPct {
			alerts = append(alerts, domain.Alert{
				Type:   domain.AlertTakeProfit,
				Symbol: symbol,
				Message: fmt.Sprintf("%s is up %.2f%% from buy price %.8f",
					symbol, perf, pos.BuyPrice),
				Recommendation:     "sell to lock in the gain",
				CurrentPrice:       pos.CurrentPrice,
				PeakPrice:          pos.PeakPrice,
				PerformancePct:     round2(perf),
				PeakPerformancePct: round2(pos.PeakPerformancePct),
				DropFromPeakPct:    round2(drop),
				ThresholdPct:       t.cfg.TakeProfitPct,
			})
		}
	}
	return alerts
}

// Flush writes every in-memory position through to storage.
func (t *Tracker) Flush(ctx context.Context) {
	for _, pos := range t.positions {
		t.persist(ctx, pos)
	}
}

func (t *Tracker) persist(ctx context.Context, pos *domain.Position) {
	if err := t.repo.Save(ctx, pos); err != nil {
		t.logger.Error(ctx, err, "Failed to persist position, trailing stop protection at risk until next write",
			map[string]interface{}{"symbol": pos.Symbol, "peakPrice": pos.PeakPrice})
	}
}

func buildReport(pos *domain.Position, now time.Time) PerformanceReport {
	report := PerformanceReport{
		Symbol:    pos.Symbol,
		BuyPrice:  roundTo(pos.BuyPrice, 8),
		PeakPrice: roundTo(pos.PeakPrice, 8),
		Quantity:  roundTo(pos.Quantity, 8),
		CostUSD:   round2(pos.BuyPrice * pos.Quantity),
		Status:    domain.StatusNoPrice,
		DaysHeld:  pos.DaysHeld(now),
	}
	if pos.CurrentPrice <= 0 {
		return report
	}
	perf := pos.PerformancePct()
	report.CurrentPrice = roundTo(pos.CurrentPrice, 8)
	report.ValueUSD = round2(pos.CurrentPrice * pos.Quantity)
	report.PnLUSD = roundTo((pos.CurrentPrice-pos.BuyPrice)*pos.Quantity, 4)
	report.PerformancePct = round2(perf)
	report.PeakPerformancePct = round2(pos.PeakPerformancePct)
	report.DropFromPeakPct = round2(pos.DropFromPeakPct())
	report.Status = statusFor(perf)
	return report
}

func statusFor(performancePct float64) domain.PerformanceStatus {
	switch {
	case performancePct >= 10:
		return domain.StatusExcellent
	case performancePct >= 5:
		return domain.StatusGood
	case performancePct >= 0:
		return domain.StatusPositive
	case performancePct >= -5:
		return domain.StatusSlightLoss
	case performancePct >= -10:
		return domain.StatusLoss
	default:
		return domain.StatusHeavyLoss
	}
}

func round2(v float64) float64 {
	return roundTo(v, 2)
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
