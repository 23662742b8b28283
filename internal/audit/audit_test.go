package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	return l, dir
}

func TestDecisionRoundTrip(t *testing.T) {
	l, _ := newTestLogger(t)

	l.LogDecision("run-1", &models.TradeDecision{
		Symbol:         "EURUSD",
		Timeframe:      models.TFH1,
		Recommendation: models.RecBuy,
		Confidence:     0.6,
		Reasoning:      "majority voting",
		Votes:          map[string]string{"tech": "buy", "fund": "buy", "sent": "hold"},
	})

	recs, err := Tail(l.JournalPath(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, KindDecision, rec.Kind)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "EURUSD", rec.Symbol)
	require.NotNil(t, rec.Decision)
	assert.Equal(t, models.RecBuy, rec.Decision.Recommendation)
	assert.Equal(t, "buy", rec.Decision.Votes["tech"])
	assert.False(t, rec.TS.IsZero())
}

func TestOrderMirrorsToCSV(t *testing.T) {
	l, dir := newTestLogger(t)

	l.LogOrder("run-2", &models.OrderResult{
		OK:         true,
		Ticket:     123456,
		Symbol:     "XAUUSD",
		Side:       "sell",
		Volume:     decimal.NewFromFloat(0.01),
		FillPrice:  decimal.NewFromFloat(2411.5),
		Status:     models.RecExecutedPaper,
		PaperTrade: true,
	})

	f, err := os.Open(filepath.Join(dir, "orders.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ts", rows[0][0])
	assert.Equal(t, "run-2", rows[1][1])
	assert.Equal(t, "XAUUSD", rows[1][2])
	assert.Equal(t, "sell", rows[1][3])
	assert.Equal(t, "123456", rows[1][6])

	recs, err := Tail(l.JournalPath(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Order)
	assert.True(t, recs[0].Order.PaperTrade)
}

func TestLLMCallHashesPrompt(t *testing.T) {
	l, _ := newTestLogger(t)

	l.LogLLMCall("run-3", "technical", "deepseek/deepseek-chat", "system prompt", "user prompt", "buy")

	recs, err := Tail(l.JournalPath(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, KindLLMCall, rec.Kind)
	assert.Equal(t, "technical", rec.Agent)
	assert.Len(t, rec.PromptHash, 16)
	assert.NotContains(t, rec.PromptHash, "prompt")
	assert.Equal(t, len("system prompt")+len("user prompt"), rec.PromptLen)
	assert.Equal(t, 3, rec.ResponseLen)
}

func TestTailLimitsAndOrders(t *testing.T) {
	l, _ := newTestLogger(t)
	for i := 0; i < 5; i++ {
		l.LogRunnerError("run-4", assert.AnError)
	}

	recs, err := Tail(l.JournalPath(), 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	all, err := Tail(l.JournalPath(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestByRunIDFilters(t *testing.T) {
	l, _ := newTestLogger(t)
	l.LogRunnerError("run-a", assert.AnError)
	l.LogRunnerError("run-b", assert.AnError)
	l.LogRunnerError("run-a", assert.AnError)

	recs, err := ByRunID(l.JournalPath(), "run-a")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestTailMissingJournal(t *testing.T) {
	recs, err := Tail(filepath.Join(t.TempDir(), "journal.jsonl"), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
