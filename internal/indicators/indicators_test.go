package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func syntheticBars(n int, drift float64) []models.Bar {
	bars := make([]models.Bar, n)
	price := 100.0
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price += drift + 0.4*math.Sin(float64(i)/5)
		bars[i] = models.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price - 0.1,
			High:   price + 0.3,
			Low:    price - 0.3,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func TestComputeRejectsShortHistory(t *testing.T) {
	_, err := Compute(syntheticBars(MinBars-1, 0.1))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestComputeUptrendSignals(t *testing.T) {
	s, err := Compute(syntheticBars(200, 0.5))
	require.NoError(t, err)

	// A relentless climb reads trending on SMA/MACD and stretched on the
	// oscillators.
	assert.Equal(t, SignalBullish, s.Signals["sma"])
	assert.Equal(t, SignalBullish, s.Signals["macd"])
	assert.Equal(t, SignalOverbought, s.Signals["rsi"])
	assert.Greater(t, s.RSI, 50.0)
	assert.Greater(t, s.ATR, 0.0)
	assert.Greater(t, s.BBUpper, s.BBLower)
}

func TestComputeDowntrendSignals(t *testing.T) {
	// Drift shallow enough that 200 bars from 100 stay well above zero.
	s, err := Compute(syntheticBars(200, -0.3))
	require.NoError(t, err)

	assert.Equal(t, SignalBearish, s.Signals["sma"])
	assert.Equal(t, SignalBearish, s.Signals["macd"])
	assert.Equal(t, SignalOversold, s.Signals["rsi"])
	assert.Less(t, s.RSI, 50.0)
	assert.Greater(t, s.Close, 0.0)
}

func TestATRPct(t *testing.T) {
	s := &Snapshot{Close: 200, ATR: 1}
	assert.InDelta(t, 0.005, s.ATRPct(), 1e-12)

	zero := &Snapshot{Close: 0, ATR: 1}
	assert.Zero(t, zero.ATRPct())
}

func TestMajorityCountsOversoldAsBullish(t *testing.T) {
	got := majority(map[string]string{
		"rsi":        SignalOversold,
		"macd":       SignalBearish,
		"sma":        SignalNeutral,
		"bollinger":  SignalOversold,
		"stochastic": SignalNeutral,
	})
	assert.Equal(t, SignalBullish, got)
}

func TestMajorityTieIsNeutral(t *testing.T) {
	got := majority(map[string]string{
		"macd": SignalBullish,
		"sma":  SignalBearish,
	})
	assert.Equal(t, SignalNeutral, got)
}

func TestSMASeriesLength(t *testing.T) {
	bars := syntheticBars(60, 0.2)
	sma := SMA(bars, 10)
	require.Len(t, sma, 60)
	assert.True(t, math.IsNaN(sma[5]) || sma[5] == 0)
	assert.False(t, math.IsNaN(sma[59]))
}
