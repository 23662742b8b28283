// Package indicators computes the technical snapshot the analyst reasons
// over: RSI, MACD, moving averages, Bollinger bands, stochastic and ATR, plus
// a per-indicator signal read and a majority vote across them.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// MinBars is the minimum history the snapshot needs; below it the technical
// verdict is insufficient_data.
const MinBars = 50

// Signal values.
const (
	SignalBullish    = "bullish"
	SignalBearish    = "bearish"
	SignalNeutral    = "neutral"
	SignalOversold   = "oversold"
	SignalOverbought = "overbought"
)

// Snapshot is the last value of each indicator over the supplied bars.
type Snapshot struct {
	Close      float64 `json:"close"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	SMA20      float64 `json:"sma20"`
	SMA50      float64 `json:"sma50"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	StochK     float64 `json:"stoch_k"`
	StochD     float64 `json:"stoch_d"`
	ATR        float64 `json:"atr"`

	Signals map[string]string `json:"signals"`
	Overall string            `json:"overall"`
}

// Compute builds the snapshot from bars, oldest first. Fails when fewer than
// MinBars bars are supplied.
func Compute(bars []models.Bar) (*Snapshot, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%w: need %d bars, have %d", models.ErrDataUnavailable, MinBars, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	rsi := talib.Rsi(closes, 14)
	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	bbUpper, bbMiddle, bbLower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
	stochK, stochD := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	atr := talib.Atr(highs, lows, closes, 14)

	s := &Snapshot{
		Close:      last(closes),
		RSI:        last(rsi),
		MACD:       last(macd),
		MACDSignal: last(macdSignal),
		MACDHist:   last(macdHist),
		SMA20:      last(sma20),
		SMA50:      last(sma50),
		BBUpper:    last(bbUpper),
		BBMiddle:   last(bbMiddle),
		BBLower:    last(bbLower),
		StochK:     last(stochK),
		StochD:     last(stochD),
		ATR:        last(atr),
	}
	s.Signals = s.classify()
	s.Overall = majority(s.Signals)
	return s, nil
}

// ATRPct is the ATR as a fraction of the close, the research volatility gauge.
func (s *Snapshot) ATRPct() float64 {
	if s.Close == 0 {
		return 0
	}
	return s.ATR / s.Close
}

func (s *Snapshot) classify() map[string]string {
	signals := make(map[string]string, 5)

	switch {
	case s.RSI < 30:
		signals["rsi"] = SignalOversold
	case s.RSI > 70:
		signals["rsi"] = SignalOverbought
	default:
		signals["rsi"] = SignalNeutral
	}

	if s.MACD > s.MACDSignal {
		signals["macd"] = SignalBullish
	} else {
		signals["macd"] = SignalBearish
	}

	switch {
	case s.Close > s.SMA20 && s.SMA20 > s.SMA50:
		signals["sma"] = SignalBullish
	case s.Close < s.SMA20 && s.SMA20 < s.SMA50:
		signals["sma"] = SignalBearish
	default:
		signals["sma"] = SignalNeutral
	}

	switch {
	case s.Close < s.BBLower:
		signals["bollinger"] = SignalOversold
	case s.Close > s.BBUpper:
		signals["bollinger"] = SignalOverbought
	default:
		signals["bollinger"] = SignalNeutral
	}

	switch {
	case s.StochK < 20:
		signals["stochastic"] = SignalOversold
	case s.StochK > 80:
		signals["stochastic"] = SignalOverbought
	default:
		signals["stochastic"] = SignalNeutral
	}

	return signals
}

// majority counts bullish-leaning signals (bullish, oversold) against
// bearish-leaning ones (bearish, overbought); ties are neutral.
func majority(signals map[string]string) string {
	var bull, bear int
	for _, sig := range signals {
		switch sig {
		case SignalBullish, SignalOversold:
			bull++
		case SignalBearish, SignalOverbought:
			bear++
		}
	}
	switch {
	case bull > bear:
		return SignalBullish
	case bear > bull:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

func last(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return 0
}

// SMA returns the simple moving average series for the closes of bars. Used
// by research momentum scoring and the backtester.
func SMA(bars []models.Bar, length int) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return talib.Sma(closes, length)
}

// ATRSeries returns the ATR series for bars.
func ATRSeries(bars []models.Bar, length int) []float64 {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return talib.Atr(highs, lows, closes, length)
}
