package portfolio

import (
	"context"
	"testing"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// memoryRepo is an in-memory ports.PositionRepository with injectable failures.
type memoryRepo struct {
	stored  map[string]domain.Position
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stored: make(map[string]domain.Position)}
}

func (r *memoryRepo) Save(ctx context.Context, pos *domain.Position) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.stored[pos.Symbol] = *pos
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, symbol string) error {
	delete(r.stored, symbol)
	return nil
}

func (r *memoryRepo) FindBySymbol(ctx context.Context, symbol string) (*domain.Position, error) {
	if pos, ok := r.stored[symbol]; ok {
		cp := pos
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepo) FindAll(ctx context.Context) ([]*domain.Position, error) {
	out := make([]*domain.Position, 0, len(r.stored))
	for _, pos := range r.stored {
		cp := pos
		out = append(out, &cp)
	}
	return out, nil
}

func newTestTracker(t *testing.T, repo ports.PositionRepository) *Tracker {
	t.Helper()
	tr, err := New(Config{TrailingStopPct: 1.0, TakeProfitPct: 15.0}, repo, &mockLogger{})
	require.NoError(t, err)
	return tr
}

var buyDate = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestAddPosition(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	tr := newTestTracker(t, repo)

	pos, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 150, buyDate, "42")
	require.NoError(t, err)
	assert.Equal(t, 0.10, pos.PeakPrice, "peak seeded at buy price")
	assert.Contains(t, repo.stored, "DOGEUSDT", "written through to storage")

	_, err = tr.AddPosition(ctx, "DOGEUSDT", 0.11, 100, buyDate, "43")
	assert.ErrorIs(t, err, ports.ErrPositionExists)

	_, err = tr.AddPosition(ctx, "PEPEUSDT", 0, 100, buyDate, "")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestPeakMonotonicity(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, newMemoryRepo())
	_, err := tr.AddPosition(ctx, "DOGEUSDT", 1.00, 100, buyDate, "")
	require.NoError(t, err)

	prices := []float64{0.95, 1.20, 1.10, 1.50, 0.80, 1.49}
	prevPeak := 0.0
	for i, price := range prices {
		require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", price, buyDate.Add(time.Duration(i)*time.Minute)))
		pos := tr.Position("DOGEUSDT")
		assert.GreaterOrEqual(t, pos.PeakPrice, prevPeak, "peak never decreases")
		assert.GreaterOrEqual(t, pos.PeakPrice, pos.BuyPrice, "peak never below buy price")
		prevPeak = pos.PeakPrice
	}
	assert.Equal(t, 1.50, tr.Position("DOGEUSDT").PeakPrice)
}

func TestTrailingStopAlert(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, newMemoryRepo())
	_, err := tr.AddPosition(ctx, "DOGEUSDT", 1.00, 100, buyDate, "")
	require.NoError(t, err)

	now := buyDate
	for _, price := range []float64{1.00, 1.10} {
		now = now.Add(time.Minute)
		require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", price, now))
	}
	assert.Empty(t, tr.CheckAlerts(ctx), "no retracement yet")

	require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", 1.05, now.Add(time.Minute)))
	pos := tr.Position("DOGEUSDT")
	assert.Equal(t, 1.10, pos.PeakPrice)
	assert.InDelta(t, -4.545, pos.DropFromPeakPct(), 0.001)

	alerts := tr.CheckAlerts(ctx)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertTrailingStop, alerts[0].Type)
	assert.Equal(t, "DOGEUSDT", alerts[0].Symbol)
	assert.InDelta(t, -4.55, alerts[0].DropFromPeakPct, 1e-9)
	assert.True(t, pos.TrailingStopTriggered)
}

func TestTrailingStopFiresBelowBuyPrice(t *testing.T) {
	// A retracement from a local peak fires even while the position is
	// still at a net loss.
	ctx := context.Background()
	tr := newTestTracker(t, newMemoryRepo())
	_, err := tr.AddPosition(ctx, "PEPEUSDT", 1.00, 100, buyDate, "")
	require.NoError(t, err)

	require.NoError(t, tr.UpdatePrice(ctx, "PEPEUSDT", 0.90, buyDate.Add(time.Minute)))
	alerts := tr.CheckAlerts(ctx)
	require.NotEmpty(t, alerts)
	assert.Equal(t, domain.AlertTrailingStop, alerts[0].Type)
	assert.Negative(t, alerts[0].PerformancePct, "still a net loss when the stop fired")
}

func TestTakeProfitAlert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		price   float64
		present bool
	}{
		{name: "above threshold", price: 1.16, present: true},
		{name: "below threshold", price: 1.14, present: false},
		{name: "exactly at threshold", price: 1.15, present: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker(t, newMemoryRepo())
			_, err := tr.AddPosition(ctx, "DOGEUSDT", 1.00, 100, buyDate, "")
			require.NoError(t, err)
			require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", tt.price, buyDate.Add(time.Minute)))

			var found bool
			for _, a := range tr.CheckAlerts(ctx) {
				if a.Type == domain.AlertTakeProfit {
					found = true
				}
			}
			assert.Equal(t, tt.present, found)
		})
	}
}

func TestPerformanceReport(t *testing.T) {
	ctx := context.Background()
	now := buyDate.Add(49 * time.Hour)
	tr := newTestTracker(t, newMemoryRepo())
	_, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 300, buyDate, "")
	require.NoError(t, err)
	require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", 0.112, now))

	report, err := tr.Performance("DOGEUSDT", now)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, report.PerformancePct, 1e-9)
	assert.InDelta(t, 3.6, report.PnLUSD, 1e-9)
	assert.InDelta(t, 30.0, report.CostUSD, 1e-9)
	assert.InDelta(t, 33.6, report.ValueUSD, 1e-9)
	assert.Equal(t, domain.StatusExcellent, report.Status)
	assert.Equal(t, 2, report.DaysHeld)

	again, err := tr.Performance("DOGEUSDT", now)
	require.NoError(t, err)
	assert.Equal(t, report, again, "report is idempotent without a price update")

	_, err = tr.Performance("SHIBUSDT", now)
	assert.ErrorIs(t, err, ports.ErrPositionNotFound)
}

func TestPerformanceStatusBuckets(t *testing.T) {
	tests := []struct {
		price float64
		want  domain.PerformanceStatus
	}{
		{price: 1.25, want: domain.StatusExcellent},
		{price: 1.10, want: domain.StatusExcellent}, // boundary inclusive
		{price: 1.07, want: domain.StatusGood},
		{price: 1.05, want: domain.StatusGood},
		{price: 1.02, want: domain.StatusPositive},
		{price: 1.00, want: domain.StatusPositive},
		{price: 0.97, want: domain.StatusSlightLoss},
		{price: 0.95, want: domain.StatusSlightLoss},
		{price: 0.92, want: domain.StatusLoss},
		{price: 0.90, want: domain.StatusLoss},
		{price: 0.85, want: domain.StatusHeavyLoss},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor((tt.price-1.00)/1.00*100), "price %.2f", tt.price)
	}
}

func TestPerformanceWithoutPrice(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, newMemoryRepo())
	_, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 300, buyDate, "")
	require.NoError(t, err)

	report, err := tr.Performance("DOGEUSDT", buyDate)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoPrice, report.Status)
	assert.Zero(t, report.ValueUSD)

	assert.Empty(t, tr.CheckAlerts(ctx), "positions without a price are skipped")
}

func TestPortfolioPerformance(t *testing.T) {
	ctx := context.Background()
	now := buyDate.Add(time.Hour)
	tr := newTestTracker(t, newMemoryRepo())

	_, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 100, buyDate, "")
	require.NoError(t, err)
	_, err = tr.AddPosition(ctx, "PEPEUSDT", 2.00, 10, buyDate, "")
	require.NoError(t, err)
	require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", 0.12, now))
	require.NoError(t, tr.UpdatePrice(ctx, "PEPEUSDT", 1.80, now))

	report := tr.PortfolioPerformance(now)
	assert.Equal(t, 2, report.OpenPositions)
	assert.InDelta(t, 30.0, report.TotalCostUSD, 1e-9)
	assert.InDelta(t, 30.0, report.TotalValueUSD, 1e-9)
	assert.InDelta(t, 0.0, report.TotalPnLUSD, 1e-9)
	require.Len(t, report.Positions, 2)
	assert.Equal(t, "DOGEUSDT", report.Positions[0].Symbol, "sorted by symbol")
}

func TestRemovePosition(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	tr := newTestTracker(t, repo)

	_, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 100, buyDate, "")
	require.NoError(t, err)
	require.NoError(t, tr.RemovePosition(ctx, "DOGEUSDT"))
	assert.Nil(t, tr.Position("DOGEUSDT"))
	assert.NotContains(t, repo.stored, "DOGEUSDT")

	assert.ErrorIs(t, tr.RemovePosition(ctx, "DOGEUSDT"), ports.ErrPositionNotFound)

	// re-opening starts a fresh peak
	pos, err := tr.AddPosition(ctx, "DOGEUSDT", 0.20, 50, buyDate, "")
	require.NoError(t, err)
	assert.Equal(t, 0.20, pos.PeakPrice)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.stored["DOGEUSDT"] = domain.Position{
		Symbol: "DOGEUSDT", BuyPrice: 0.10, Quantity: 100, BuyDate: buyDate,
		CurrentPrice: 0.12, PeakPrice: 0.13, PeakPerformancePct: 30,
	}

	tr := newTestTracker(t, repo)
	require.NoError(t, tr.Load(ctx))

	pos := tr.Position("DOGEUSDT")
	require.NotNil(t, pos)
	assert.Equal(t, 0.13, pos.PeakPrice, "peak history survives a restart")
}

func TestReconstructFromFills(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, newMemoryRepo())

	fills := []*domain.Fill{
		{Symbol: "DOGEUSDT", Side: domain.Buy, Quantity: 100, Price: 0.10, Timestamp: buyDate},
		{Symbol: "DOGEUSDT", Side: domain.Buy, Quantity: 100, Price: 0.20, Timestamp: buyDate.Add(time.Hour)},
		{Symbol: "PEPEUSDT", Side: domain.Buy, Quantity: 50, Price: 1.00, Timestamp: buyDate},
		{Symbol: "PEPEUSDT", Side: domain.Sell, Quantity: 50, Price: 1.10, Timestamp: buyDate.Add(time.Hour)},
	}

	rebuilt := tr.Reconstruct(ctx, fills)
	assert.Equal(t, 1, rebuilt)

	pos := tr.Position("DOGEUSDT")
	require.NotNil(t, pos)
	assert.InDelta(t, 0.15, pos.BuyPrice, 1e-9, "weighted average of unmatched buys")
	assert.Equal(t, 200.0, pos.Quantity)
	assert.Equal(t, buyDate, pos.BuyDate)

	assert.Nil(t, tr.Position("PEPEUSDT"), "fully sold symbols are not reopened")
}

func TestPersistFailureDoesNotFailCaller(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.saveErr = ports.ErrDBConnection
	tr := newTestTracker(t, repo)

	pos, err := tr.AddPosition(ctx, "DOGEUSDT", 0.10, 100, buyDate, "")
	require.NoError(t, err, "in-memory state stays authoritative")
	require.NotNil(t, pos)
	require.NoError(t, tr.UpdatePrice(ctx, "DOGEUSDT", 0.12, buyDate.Add(time.Minute)))
	assert.Equal(t, 0.12, tr.Position("DOGEUSDT").PeakPrice)
}
