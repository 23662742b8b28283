package dataflows

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func TestSimBarsDeterministic(t *testing.T) {
	s := NewSimSource()
	ctx := context.Background()

	a, err := s.Bars(ctx, "EURUSD", models.TFH1, 100)
	require.NoError(t, err)
	b, err := s.Bars(ctx, "EURUSD", models.TFH1, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := s.Bars(ctx, "GBPUSD", models.TFH1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, a[50].Close, other[50].Close)
}

func TestSimBarsShape(t *testing.T) {
	s := NewSimSource()
	bars, err := s.Bars(context.Background(), "XAUUSD", models.TFH1, 60)
	require.NoError(t, err)
	require.Len(t, bars, 60)

	for i, b := range bars {
		assert.GreaterOrEqual(t, b.High, b.Low, "bar %d", i)
		assert.GreaterOrEqual(t, b.High, b.Close, "bar %d", i)
		assert.LessOrEqual(t, b.Low, b.Close, "bar %d", i)
		if i > 0 {
			assert.True(t, b.Time.After(bars[i-1].Time), "bar %d not ascending", i)
		}
	}
}

func TestSimPricesPositive(t *testing.T) {
	// Symbols whose name hash lands in the upper half of uint64 must still
	// walk from a positive base.
	s := NewSimSource()
	for _, symbol := range []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"} {
		assert.GreaterOrEqual(t, basePrice(symbol), 1.0, symbol)

		bars, err := s.Bars(context.Background(), symbol, models.TFH1, 100)
		require.NoError(t, err)
		for i, b := range bars {
			assert.Greater(t, b.Low, 0.0, "%s bar %d", symbol, i)
		}

		q, err := s.Quote(context.Background(), symbol)
		require.NoError(t, err)
		assert.Greater(t, q.Bid, 0.0, symbol)
	}
}

func TestSimQuoteSpread(t *testing.T) {
	s := NewSimSource()
	q, err := s.Quote(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Greater(t, q.Ask, q.Bid)
}

func TestSimClosedDealsSince(t *testing.T) {
	s := NewSimSource()
	now := time.Now().UTC()
	s.SetClosedDeals([]models.ClosedDeal{
		{Symbol: "EURUSD", Profit: -50, CloseTime: now.Add(-2 * time.Hour)},
		{Symbol: "EURUSD", Profit: 30, CloseTime: now.Add(-30 * time.Hour)},
	})

	deals, err := s.ClosedDeals(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, -50.0, deals[0].Profit)
}

func TestPaperBrokerFillsAtQuote(t *testing.T) {
	sim := NewSimSource()
	broker := NewPaperBroker(sim, zerolog.Nop())
	ctx := context.Background()

	q, err := sim.Quote(ctx, "EURUSD")
	require.NoError(t, err)

	buy, err := broker.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: models.RecBuy, Volume: 0.01})
	require.NoError(t, err)
	assert.True(t, buy.OK)
	assert.True(t, buy.PaperTrade)
	assert.Equal(t, models.RecExecutedPaper, buy.Status)
	assert.InDelta(t, q.Ask, buy.FillPrice.InexactFloat64(), 1e-9)
	assert.GreaterOrEqual(t, buy.Ticket, int64(100000))
	assert.LessOrEqual(t, buy.Ticket, int64(999999))

	sell, err := broker.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: models.RecSell, Volume: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, q.Bid, sell.FillPrice.InexactFloat64(), 1e-9)
}

func TestInPauseWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		{Title: "NFP", Currency: "USD", Impact: "high", Time: now.Add(10 * time.Minute)},
		{Title: "CPI", Currency: "EUR", Impact: "medium", Time: now.Add(5 * time.Minute)},
		{Title: "Rate Decision", Currency: "JPY", Impact: "high", Time: now.Add(5 * time.Minute)},
	}

	paused, hit := InPauseWindow(events, "EURUSD", now, 15*time.Minute)
	require.True(t, paused)
	assert.Equal(t, "NFP", hit.Title)

	// Medium impact never pauses.
	paused, _ = InPauseWindow(events[1:2], "EURUSD", now, 15*time.Minute)
	assert.False(t, paused)

	// Unrelated currency never pauses.
	paused, _ = InPauseWindow(events[2:], "EURUSD", now, 15*time.Minute)
	assert.False(t, paused)

	// Outside the window.
	paused, _ = InPauseWindow(events[:1], "EURUSD", now.Add(-time.Hour), 15*time.Minute)
	assert.False(t, paused)
}

func TestSymbolKeywords(t *testing.T) {
	assert.Equal(t, []string{"EURUSD", "EUR", "USD"}, symbolKeywords("eurusd"))
	assert.Equal(t, []string{"XAUUSD", "XAU", "USD"}, symbolKeywords("XAUUSD"))
	assert.Equal(t, []string{"BTCUSDT"}, symbolKeywords("BTCUSDT"))
}

func TestYahooSymbol(t *testing.T) {
	assert.Equal(t, "EURUSD=X", yahooSymbol("eurusd"))
	assert.Equal(t, "AAPL", yahooSymbol("AAPL"))
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func() error {
		calls++
		if calls < 2 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryExhausts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func() error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 3, calls)
}
