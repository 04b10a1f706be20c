package domain

import "time"

// Position is a held inventory of one symbol. PeakPrice starts at the buy
// price and only ever ratchets upward; losing that history silently disables
// the trailing stop, so it is persisted alongside the entry data.
type Position struct {
	Symbol   string
	BuyPrice float64
	Quantity float64
	BuyDate  time.Time
	TradeID  string // exchange order ID of the opening fill, if known

	CurrentPrice float64 // refreshed each monitoring tick, 0 until first update
	LastUpdate   time.Time

	PeakPrice             float64
	PeakPerformancePct    float64 // performance at the peak, relative to buy price
	TrailingStopTriggered bool    // set once by the alert pass, never auto-reset
}

// NewPosition creates an open position with the peak seeded at the buy price.
func NewPosition(symbol string, buyPrice, quantity float64, buyDate time.Time, tradeID string) *Position {
	return &Position{
		Symbol:    symbol,
		BuyPrice:  buyPrice,
		Quantity:  quantity,
		BuyDate:   buyDate,
		TradeID:   tradeID,
		PeakPrice: buyPrice,
	}
}

// ApplyPrice records a fresh market price and ratchets the peak if the price
// made a new high. Returns true when a new peak was recorded.
func (p *Position) ApplyPrice(price float64, now time.Time) bool {
	p.CurrentPrice = price
	p.LastUpdate = now
	if price > p.PeakPrice {
		p.PeakPrice = price
		p.PeakPerformancePct = (price - p.BuyPrice) / p.BuyPrice * 100
		return true
	}
	return false
}

// PerformancePct is the return from the buy price to the current price.
func (p *Position) PerformancePct() float64 {
	if p.BuyPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.BuyPrice) / p.BuyPrice * 100
}

// DropFromPeakPct is the retracement from the peak price; <= 0 once a peak
// above the buy price exists, exactly 0 right after a fresh peak.
func (p *Position) DropFromPeakPct() float64 {
	if p.PeakPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.PeakPrice) / p.PeakPrice * 100
}

// DaysHeld is the whole number of days since the position was opened.
func (p *Position) DaysHeld(now time.Time) int {
	if p.BuyDate.IsZero() || now.Before(p.BuyDate) {
		return 0
	}
	return int(now.Sub(p.BuyDate).Hours() / 24)
}
