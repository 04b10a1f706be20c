// Package strategy implements the multi-factor signal scorer: five weighted
// technical/market factors vote BUY or SELL, and the winning share of the
// total weight becomes the signal's confidence.
package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"
	"memeCoinBot/internal/strategy/indicators"
)

// Factor weights. Every factor contributes its weight to the denominator
// whether or not it voted, so a neutral factor dilutes confidence.
const (
	weightCrossover = 3.0
	weightRSI       = 2.0
	weightBollinger = 2.0
	weightTrend     = 2.0
	weightChange24h = 1.0
)

// Confidence dampening multipliers.
const (
	volatilityDamp = 0.8
	cooldownDamp   = 0.85
)

// Config holds parameters for the signal scorer.
type Config struct {
	SMAFastPeriod int     // e.g. 5
	SMASlowPeriod int     // e.g. 10
	EMAFastPeriod int     // e.g. 6
	EMASlowPeriod int     // e.g. 12
	RSIPeriod     int     // e.g. 10
	RSIOverbought float64 // e.g. 65.0
	RSIOversold   float64 // e.g. 35.0
	BBPeriod      int     // e.g. 15
	BBStdMult     float64 // e.g. 2.0

	MinPriceHistory        int     // below this, score degrades to HOLD
	MinConfidence          float64 // below this, no amount is sized
	VolatilityThresholdPct float64 // above this, confidence is dampened
	BaseAmountUSD          float64 // order-size cap, scaled by confidence
}

// Scorer implements ports.SignalScorer.
type Scorer struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Scorer instance.
func New(cfg Config, logger ports.Logger) (*Scorer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for scorer")
	}
	if cfg.SMAFastPeriod <= 0 || cfg.SMASlowPeriod <= 0 || cfg.EMAFastPeriod <= 0 ||
		cfg.EMASlowPeriod <= 0 || cfg.RSIPeriod <= 0 || cfg.BBPeriod <= 0 {
		return nil, fmt.Errorf("scorer periods must be positive")
	}
	if cfg.SMAFastPeriod >= cfg.SMASlowPeriod {
		return nil, fmt.Errorf("fast SMA period must be less than slow SMA period")
	}
	if cfg.EMAFastPeriod >= cfg.EMASlowPeriod {
		return nil, fmt.Errorf("fast EMA period must be less than slow EMA period")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		return nil, fmt.Errorf("invalid RSI thresholds (overbought must be > oversold, within 0-100)")
	}
	if cfg.MinPriceHistory <= 0 {
		return nil, fmt.Errorf("minimum price history must be positive")
	}
	if cfg.BBStdMult <= 0 {
		cfg.BBStdMult = 2.0
	}
	return &Scorer{cfg: cfg, logger: logger}, nil
}

// MinDataPoints returns the history length required for a full pass: the
// configured minimum, but never less than what the widest indicator window
// needs (BBPeriod closes, RSIPeriod+1 closes for the deltas).
func (s *Scorer) MinDataPoints() int {
	n := s.cfg.MinPriceHistory
	if s.cfg.BBPeriod > n {
		n = s.cfg.BBPeriod
	}
	if s.cfg.RSIPeriod+1 > n {
		n = s.cfg.RSIPeriod + 1
	}
	return n
}

// Score evaluates the market state and returns a trading signal. It never
// fails: a short history degrades to HOLD with confidence 0 and a reason
// string explaining why.
func (s *Scorer) Score(ctx context.Context, m domain.MarketState, inCooldown bool) domain.TradingSignal {
	if minPoints := s.MinDataPoints(); len(m.PriceHistory) < minPoints {
		reason := fmt.Sprintf("insufficient price history (%d of %d points)", len(m.PriceHistory), minPoints)
		s.logger.Debug(ctx, "Scoring degraded to HOLD", map[string]interface{}{"symbol": m.Symbol, "reason": reason})
		return domain.TradingSignal{
			Action:     domain.ActionHold,
			Symbol:     m.Symbol,
			Confidence: 0.0,
			Reason:     reason,
			Price:      m.CurrentPrice,
			Timestamp:  time.Now().UTC(),
			Indicators: map[string]float64{},
		}
	}

	prices := m.PriceHistory
	price := m.CurrentPrice

	smaFast := indicators.SMA(prices, s.cfg.SMAFastPeriod)
	smaSlow := indicators.SMA(prices, s.cfg.SMASlowPeriod)
	emaFast := indicators.EMA(prices, s.cfg.EMAFastPeriod)
	emaSlow := indicators.EMA(prices, s.cfg.EMASlowPeriod)
	rsi := indicators.RSI(prices, s.cfg.RSIPeriod)
	bbUp, bbMid, bbLo := indicators.Bollinger(prices, s.cfg.BBPeriod, s.cfg.BBStdMult)

	var reasons []string
	var buyScore, sellScore, totalWeight float64

	// 1) SMA+EMA crossover direction.
	if smaFast > smaSlow && emaFast > emaSlow {
		buyScore += weightCrossover
		reasons = append(reasons, "bullish MA crossover")
	} else if smaFast < smaSlow && emaFast < emaSlow {
		sellScore += weightCrossover
		reasons = append(reasons, "bearish MA crossover")
	}
	totalWeight += weightCrossover

	// 2) RSI oversold/overbought.
	if rsi < s.cfg.RSIOversold {
		buyScore += weightRSI
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi))
	} else if rsi > s.cfg.RSIOverbought {
		sellScore += weightRSI
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", rsi))
	} else {
		reasons = append(reasons, fmt.Sprintf("RSI neutral (%.1f)", rsi))
	}
	totalWeight += weightRSI

	// 3) Position within the Bollinger band range. Abstains when the window
	// is unfilled or the band has collapsed to negligible width, where the
	// band position would only amplify float noise.
	width := bbUp - bbLo
	bbPos := 0.5
	if len(prices) < s.cfg.BBPeriod || width <= math.Abs(bbMid)*1e-9 {
		reasons = append(reasons, "Bollinger band not formed")
	} else {
		bbPos = (price - bbLo) / width
		if bbPos <= 0.2 {
			buyScore += weightBollinger
			reasons = append(reasons, "price near lower Bollinger band")
		} else if bbPos >= 0.8 {
			sellScore += weightBollinger
			reasons = append(reasons, "price near upper Bollinger band")
		} else {
			reasons = append(reasons, fmt.Sprintf("price mid-band (%.2f)", bbPos))
		}
	}
	totalWeight += weightBollinger

	// 4) Short-term trend over the last 3 points. Only counts toward the
	// denominator when 3 points exist.
	if len(prices) >= 3 {
		trendPct := (price - prices[len(prices)-3]) / prices[len(prices)-3] * 100
		if trendPct > 0.5 {
			buyScore += weightTrend
			reasons = append(reasons, fmt.Sprintf("short-term uptrend (%.2f%%)", trendPct))
		} else if trendPct < -0.5 {
			sellScore += weightTrend
			reasons = append(reasons, fmt.Sprintf("short-term downtrend (%.2f%%)", trendPct))
		} else {
			reasons = append(reasons, fmt.Sprintf("sideways trend (%.2f%%)", trendPct))
		}
		totalWeight += weightTrend
	}

	// 5) 24h percentage change.
	if m.Change24hPct > 1 {
		buyScore += weightChange24h
		reasons = append(reasons, fmt.Sprintf("24h gain (%.2f%%)", m.Change24hPct))
	} else if m.Change24hPct < -1 {
		sellScore += weightChange24h
		reasons = append(reasons, fmt.Sprintf("24h drop (%.2f%%)", m.Change24hPct))
	}
	totalWeight += weightChange24h

	var action domain.SignalAction
	var confidence float64
	switch {
	case buyScore > sellScore:
		action = domain.ActionBuy
		confidence = buyScore / totalWeight
	case sellScore > buyScore:
		action = domain.ActionSell
		confidence = sellScore / totalWeight
	default:
		action = domain.ActionHold
		confidence = 0.5
	}

	if m.VolatilityPct > s.cfg.VolatilityThresholdPct {
		confidence *= volatilityDamp
		reasons = append(reasons, fmt.Sprintf("high volatility (%.2f%%), confidence dampened", m.VolatilityPct))
	}
	if inCooldown {
		confidence *= cooldownDamp
		reasons = append(reasons, "post-loss cooldown active, confidence dampened")
	}

	var amountUSD float64
	if action != domain.ActionHold && confidence >= s.cfg.MinConfidence {
		amountUSD = s.cfg.BaseAmountUSD * confidence
	}

	sig := domain.TradingSignal{
		Action:     action,
		Symbol:     m.Symbol,
		Confidence: confidence,
		Reason:     strings.Join(reasons, "; "),
		Price:      price,
		AmountUSD:  amountUSD,
		Timestamp:  time.Now().UTC(),
		Indicators: map[string]float64{
			"sma_fast":       smaFast,
			"sma_slow":       smaSlow,
			"ema_fast":       emaFast,
			"ema_slow":       emaSlow,
			"rsi":            rsi,
			"bb_upper":       bbUp,
			"bb_middle":      bbMid,
			"bb_lower":       bbLo,
			"bb_pos":         bbPos,
			"change_24h_pct": m.Change24hPct,
			"volatility_pct": m.VolatilityPct,
			"current_price":  price,
		},
	}

	s.logger.Debug(ctx, "Signal scored", map[string]interface{}{
		"symbol":     sig.Symbol,
		"action":     sig.Action,
		"confidence": sig.Confidence,
		"buyScore":   buyScore,
		"sellScore":  sellScore,
		"reason":     sig.Reason,
	})
	return sig
}
