package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// SignalAction is the decision produced by the signal scorer.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// PerformanceStatus buckets a position's return measured from its buy price.
// Boundaries are inclusive on the upper side of each bucket.
type PerformanceStatus string

const (
	StatusExcellent  PerformanceStatus = "excellent"   // >= +10%
	StatusGood       PerformanceStatus = "good"        // >= +5%
	StatusPositive   PerformanceStatus = "positive"    // >= 0%
	StatusSlightLoss PerformanceStatus = "slight_loss" // >= -5%
	StatusLoss       PerformanceStatus = "loss"        // >= -10%
	StatusHeavyLoss  PerformanceStatus = "heavy_loss"  // < -10%
	StatusNoPrice    PerformanceStatus = "no_price"    // current price not yet known
)

// AlertType tags an alert emitted by the position tracker.
type AlertType string

const (
	AlertTrailingStop AlertType = "trailing_stop"
	AlertTakeProfit   AlertType = "take_profit"
)
