package ports

import (
	"context"

	"memeCoinBot/internal/domain"
)

// SignalScorer turns a market snapshot into a trading signal.
type SignalScorer interface {
	// MinDataPoints returns the minimum price-history length needed for a
	// full scoring pass; shorter histories degrade to HOLD.
	MinDataPoints() int

	// Score evaluates the market state and returns a signal. It never
	// fails: insufficient data yields HOLD with confidence 0. inCooldown
	// reports whether the strategy recently realized a loss, which damps
	// the resulting confidence.
	Score(ctx context.Context, m domain.MarketState, inCooldown bool) domain.TradingSignal
}
