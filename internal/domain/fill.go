package domain

import "time"

// Fill is one executed order recorded in the append-only trade log. The log
// is replayed to reconstruct open positions on startup and to compute the
// day's realized P&L.
type Fill struct {
	ID        int64 // assigned by the repository
	Symbol    string
	Side      OrderSide
	Quantity  float64
	Price     float64
	Timestamp time.Time
}

// Notional returns the quote-currency value of the fill.
func (f *Fill) Notional() float64 {
	return f.Quantity * f.Price
}
