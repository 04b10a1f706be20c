// Package indicators provides stateless technical-indicator functions over an
// ordered price series (oldest first). Insufficient history never produces an
// error: each function degrades to a documented neutral fallback so that a
// thin series yields a neutral signal rather than a crashed scoring pass.
package indicators

import "math"

// SMA returns the arithmetic mean of the last period prices. With fewer than
// period prices it falls back to the last price, or 0 for an empty series.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	total := 0.0
	for _, p := range prices[len(prices)-period:] {
		total += p
	}
	return total / float64(period)
}

// EMA returns the exponential moving average with multiplier 2/(period+1),
// seeded with the first price and folded forward over the whole series.
// Same insufficient-data fallback as SMA.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	multiplier := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema
}

// RSI returns the relative strength index over the trailing period changes,
// using a simple average of gains and losses (not Wilder smoothing).
// Returns 50 with insufficient history and 100 when the average loss is zero.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}
	var avgGain, avgLoss float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Bollinger returns the upper, middle and lower Bollinger bands: the SMA of
// the trailing window plus/minus stdMult population standard deviations.
// With insufficient data all three bands collapse to the last price (0 when
// the series is empty).
func Bollinger(prices []float64, period int, stdMult float64) (upper, middle, lower float64) {
	if len(prices) < period {
		last := 0.0
		if len(prices) > 0 {
			last = prices[len(prices)-1]
		}
		return last, last, last
	}
	window := prices[len(prices)-period:]
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)

	variance := 0.0
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	return mean + stdMult*std, mean, mean - stdMult*std
}
