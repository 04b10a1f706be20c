package risk

import "memeCoinBot/internal/domain"

// DailyRealizedPnL replays a day's fills in chronological order and returns
// the realized profit and loss in quote currency. Each symbol carries a
// moving weighted-average cost basis: buys blend into the average, sells
// realize (sell price - average cost) on the matched quantity. Sells beyond
// the tracked quantity (e.g. positions opened before the day's first fill)
// realize nothing rather than inventing a basis.
func DailyRealizedPnL(fills []*domain.Fill) float64 {
	type basis struct {
		qty float64
		avg float64
	}
	book := make(map[string]*basis)
	var pnl float64

	for _, f := range fills {
		b, ok := book[f.Symbol]
		if !ok {
			b = &basis{}
			book[f.Symbol] = b
		}
		switch f.Side {
		case domain.Buy:
			total := b.qty + f.Quantity
			if total > 0 {
				b.avg = (b.avg*b.qty + f.Notional()) / total
			}
			b.qty = total
		case domain.Sell:
			matched := f.Quantity
			if matched > b.qty {
				matched = b.qty
			}
			pnl += matched * (f.Price - b.avg)
			b.qty -= matched
		}
	}
	return pnl
}
