package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{name: "empty series returns zero", prices: nil, period: 9, want: 0},
		{name: "short series falls back to last price", prices: []float64{5}, period: 9, want: 5},
		{name: "exact window", prices: []float64{1, 2, 3}, period: 3, want: 2},
		{name: "uses trailing window only", prices: []float64{100, 1, 2, 3}, period: 3, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SMA(tt.prices, tt.period), 1e-12)
		})
	}
}

func TestEMA(t *testing.T) {
	assert.Equal(t, 0.0, EMA(nil, 5))
	assert.Equal(t, 7.0, EMA([]float64{7}, 5), "short series falls back to last price")

	// Seeded with the first price and folded forward: for period 2 the
	// multiplier is 2/3, so [3, 6] gives 3 + 2/3*(6-3) = 5.
	assert.InDelta(t, 5.0, EMA([]float64{3, 6}, 2), 1e-12)

	// A constant series stays at the constant.
	constant := []float64{4, 4, 4, 4, 4, 4}
	assert.InDelta(t, 4.0, EMA(constant, 3), 1e-12)
}

func TestRSI(t *testing.T) {
	// Insufficient history degrades to neutral.
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))

	// No losses means max RSI, including a perfectly flat series.
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 1
	}
	assert.Equal(t, 100.0, RSI(flat, 14))

	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	assert.Equal(t, 100.0, RSI(rising, 14))

	// Alternating equal gains and losses sits at 50.
	alternating := make([]float64, 21)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 100
		} else {
			alternating[i] = 101
		}
	}
	assert.InDelta(t, 50.0, RSI(alternating, 14), 1e-9)

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(40 - i)
	}
	assert.InDelta(t, 0.0, RSI(falling, 14), 1e-9)
}

func TestBollinger(t *testing.T) {
	t.Run("insufficient data collapses to last price", func(t *testing.T) {
		up, mid, lo := Bollinger([]float64{2.5}, 20, 2.0)
		assert.Equal(t, 2.5, up)
		assert.Equal(t, 2.5, mid)
		assert.Equal(t, 2.5, lo)

		up, mid, lo = Bollinger(nil, 20, 2.0)
		assert.Zero(t, up)
		assert.Zero(t, mid)
		assert.Zero(t, lo)
	})

	t.Run("bands use population standard deviation", func(t *testing.T) {
		prices := []float64{2, 4, 4, 4, 5, 5, 7, 9} // mean 5, population std 2
		up, mid, lo := Bollinger(prices, 8, 2.0)
		assert.InDelta(t, 5.0, mid, 1e-12)
		assert.InDelta(t, 9.0, up, 1e-12)
		assert.InDelta(t, 1.0, lo, 1e-12)
	})

	t.Run("flat window has zero width", func(t *testing.T) {
		prices := []float64{3, 3, 3, 3}
		up, mid, lo := Bollinger(prices, 4, 2.0)
		assert.True(t, math.Abs(up-lo) < 1e-12)
		assert.Equal(t, 3.0, mid)
	})
}
