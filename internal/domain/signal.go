package domain

import "time"

// TradingSignal is the output of one scoring pass. It is immutable and
// consumed once by the risk gate and logging.
type TradingSignal struct {
	Action     SignalAction
	Symbol     string
	Confidence float64 // 0.0 - 1.0
	Reason     string  // human-readable trace of every contributing factor
	Price      float64
	AmountUSD  float64 // quote-currency order size, scaled by confidence
	Timestamp  time.Time
	Indicators map[string]float64 // indicator snapshot used to produce the signal
}
