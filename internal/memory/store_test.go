package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoriesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMemory(ctx, "technical", "EURUSD", "RSI oversold"))
	require.NoError(t, s.SaveMemory(ctx, "technical", "XAUUSD", "MACD bullish cross"))
	require.NoError(t, s.SaveMemory(ctx, "risk", "", "drawdown near limit"))

	recs, err := s.RecentMemories(ctx, "technical", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "MACD bullish cross", recs[0].Content)
	assert.Equal(t, "RSI oversold", recs[1].Content)
}

func TestSaveMemoryRequiresAgent(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SaveMemory(context.Background(), " ", "EURUSD", "x"))
}

func TestTradesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrade(ctx, TradeRecord{
		RunID: "run-1", Symbol: "EURUSD", Side: "buy",
		Volume: 0.01, FillPrice: 1.0852, Ticket: 654321, Paper: true,
	}))
	require.NoError(t, s.SaveTrade(ctx, TradeRecord{
		RunID: "run-2", Symbol: "XAUUSD", Side: "sell",
		Volume: 0.02, FillPrice: 2410.0, Ticket: 654322,
	}))

	all, err := s.RecentTrades(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "XAUUSD", all[0].Symbol)
	assert.False(t, all[0].Paper)
	assert.True(t, all[1].Paper)

	eur, err := s.RecentTrades(ctx, "EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, eur, 1)
	assert.Equal(t, int64(654321), eur[0].Ticket)
}

func TestPeakBalanceNeverLowers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.PeakBalance(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpdatePeakBalance(ctx, 10000))
	peak, ok, err := s.PeakBalance(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10000.0, peak)

	require.NoError(t, s.UpdatePeakBalance(ctx, 9000))
	peak, _, err = s.PeakBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, peak)

	require.NoError(t, s.UpdatePeakBalance(ctx, 12000))
	peak, _, err = s.PeakBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, peak)
}
