package domain

import "time"

// MarketState is a single-cycle snapshot of a symbol's market. It is built
// once per polling cycle, scored once and then discarded.
type MarketState struct {
	Symbol        string
	CurrentPrice  float64
	PriceHistory  []float64 // ordered oldest first, most recent last
	Volume24h     float64
	Change24hPct  float64 // 24h change as a percentage (e.g. 2.5 for +2.5%)
	VolatilityPct float64
	Timestamp     time.Time
}
