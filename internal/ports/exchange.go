package ports

import (
	"context"
	"time"

	"memeCoinBot/internal/domain"
)

// Ticker holds the 24h market statistics for one symbol.
type Ticker struct {
	Symbol       string
	LastPrice    float64
	ChangePct24h float64 // signed 24h change percentage
	Volume24h    float64 // base-asset volume
}

// Balance holds the account balance for a single asset.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Total returns the combined free and locked balance.
func (b Balance) Total() float64 {
	return b.Free + b.Locked
}

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID     int64
	Symbol      string
	Side        domain.OrderSide
	FillPrice   float64 // average filled price, 0 if unknown
	ExecutedQty float64
	Status      string // e.g. FILLED, PARTIALLY_FILLED
	Timestamp   time.Time
}

// ExchangeClient defines the interface for interacting with a cryptocurrency
// exchange. Implementations must surface authentication and rate-limit
// failures distinctly (ErrAuthenticationFailed, ErrRateLimited) from a
// missing symbol (ErrNotFound).
type ExchangeClient interface {
	// GetTicker retrieves the current 24h statistics for a symbol.
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)

	// GetBalances retrieves all non-zero asset balances for the account.
	GetBalances(ctx context.Context) (map[string]Balance, error)

	// PlaceMarketOrder places a market order sized in the base asset.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*OrderResponse, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error
}

// MarketDataSource supplies the historical price series used for indicator
// calculations. It may be backed by the exchange or a local price cache.
type MarketDataSource interface {
	// GetPriceHistory returns up to limit prices for the symbol, ordered
	// oldest first.
	GetPriceHistory(ctx context.Context, symbol string, limit int) ([]float64, error)
}
