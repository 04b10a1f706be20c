package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memeCoinBot/internal/domain"

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

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "meme-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestRepository_SaveAndFindPosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	buyDate := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	pos := &domain.Position{
		Symbol:                "DOGEUSDT",
		BuyPrice:              0.12345678,
		Quantity:              150.5,
		BuyDate:               buyDate,
		TradeID:               "987654",
		CurrentPrice:          0.13,
		LastUpdate:            buyDate.Add(time.Hour),
		PeakPrice:             0.13333333,
		PeakPerformancePct:    8.0,
		TrailingStopTriggered: true,
	}
	require.NoError(t, repo.Save(ctx, pos))

	found, err := repo.FindBySymbol(ctx, "DOGEUSDT")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pos.Symbol, found.Symbol)
	assert.Equal(t, pos.BuyPrice, found.BuyPrice)
	assert.Equal(t, pos.Quantity, found.Quantity)
	assert.Equal(t, pos.TradeID, found.TradeID)
	assert.Equal(t, pos.CurrentPrice, found.CurrentPrice)
	assert.Equal(t, pos.PeakPrice, found.PeakPrice, "peak price must round-trip exactly")
	assert.Equal(t, pos.PeakPerformancePct, found.PeakPerformancePct)
	assert.True(t, found.TrailingStopTriggered)
	assert.True(t, found.BuyDate.Equal(buyDate))
}

func TestRepository_SaveReplacesBySymbol(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	pos := domain.NewPosition("DOGEUSDT", 0.10, 100, time.Now(), "1")
	require.NoError(t, repo.Save(ctx, pos))

	pos.ApplyPrice(0.15, time.Now())
	require.NoError(t, repo.Save(ctx, pos))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "save replaces rather than duplicates")
	assert.Equal(t, 0.15, all[0].PeakPrice)
}

func TestRepository_FindMissingPosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	found, err := repo.FindBySymbol(context.Background(), "NOSUCHUSDT")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_DeletePosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewPosition("DOGEUSDT", 0.10, 100, time.Now(), "")))
	require.NoError(t, repo.Delete(ctx, "DOGEUSDT"))

	found, err := repo.FindBySymbol(ctx, "DOGEUSDT")
	require.NoError(t, err)
	assert.Nil(t, found)

	// deleting again is not an error
	assert.NoError(t, repo.Delete(ctx, "DOGEUSDT"))
}

func TestRepository_FindAllOrderedBySymbol(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, symbol := range []string{"SHIBUSDT", "DOGEUSDT", "PEPEUSDT"} {
		require.NoError(t, repo.Save(ctx, domain.NewPosition(symbol, 1.0, 10, time.Now(), "")))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "DOGEUSDT", all[0].Symbol)
	assert.Equal(t, "PEPEUSDT", all[1].Symbol)
	assert.Equal(t, "SHIBUSDT", all[2].Symbol)
}

func TestRepository_AppendAndFindFills(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	fills := repo.Fills()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	first := &domain.Fill{Symbol: "DOGEUSDT", Side: domain.Buy, Quantity: 100, Price: 0.10, Timestamp: base}
	second := &domain.Fill{Symbol: "DOGEUSDT", Side: domain.Sell, Quantity: 100, Price: 0.12, Timestamp: base.Add(time.Hour)}

	id1, err := fills.Append(ctx, first)
	require.NoError(t, err)
	id2, err := fills.Append(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
	assert.Equal(t, id1, first.ID)

	all, err := fills.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.Buy, all[0].Side, "oldest first")
	assert.Equal(t, domain.Sell, all[1].Side)
}

func TestRepository_FindFillsByDay(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	fills := repo.Fills()

	day1 := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)

	_, err := fills.Append(ctx, &domain.Fill{Symbol: "DOGEUSDT", Side: domain.Buy, Quantity: 10, Price: 0.1, Timestamp: day1})
	require.NoError(t, err)
	_, err = fills.Append(ctx, &domain.Fill{Symbol: "DOGEUSDT", Side: domain.Sell, Quantity: 10, Price: 0.2, Timestamp: day2})
	require.NoError(t, err)

	got, err := fills.FindByDay(ctx, day1)
	require.NoError(t, err)
	require.Len(t, got, 1, "midnight boundary separates days")
	assert.Equal(t, domain.Buy, got[0].Side)

	got, err = fills.FindByDay(ctx, day2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Sell, got[0].Side)
}
