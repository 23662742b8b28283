package agents

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

type stubBroker struct {
	result *models.OrderResult
	err    error
	last   dataflows.OrderRequest
}

func (s *stubBroker) PlaceOrder(_ context.Context, req dataflows.OrderRequest) (*models.OrderResult, error) {
	s.last = req
	return s.result, s.err
}

func TestExecutionUsesTestLotOverride(t *testing.T) {
	broker := &stubBroker{result: &models.OrderResult{OK: true, Symbol: "EURUSD", Side: "buy", Ticket: 123456, Volume: decimal.NewFromFloat(0.05), Status: models.RecExecutedPaper, PaperTrade: true}}
	cfg := testConfig()
	cfg.TestLot = 0.05
	agent := NewExecutionAgent(broker, cfg, nil, nil, nop())

	agent.Execute(context.Background(), "run", proposal())
	assert.Equal(t, 0.05, broker.last.Volume)
}

func TestExecutionDefaultLot(t *testing.T) {
	broker := &stubBroker{result: &models.OrderResult{OK: true, Symbol: "EURUSD", Side: "buy", Ticket: 123456, Status: models.RecExecutedPaper, PaperTrade: true}}
	agent := NewExecutionAgent(broker, testConfig(), nil, nil, nop())

	agent.Execute(context.Background(), "run", proposal())
	assert.Equal(t, 0.01, broker.last.Volume)
}

func TestExecutionPersistsSuccessfulTrade(t *testing.T) {
	store, err := memory.Open(filepath.Join(t.TempDir(), "exec.db"))
	require.NoError(t, err)
	defer store.Close()

	broker := &stubBroker{result: &models.OrderResult{
		OK: true, Symbol: "EURUSD", Side: "buy", Ticket: 555001,
		Volume: decimal.NewFromFloat(0.01), FillPrice: decimal.NewFromFloat(1.0852),
		Status: models.RecExecutedPaper, PaperTrade: true,
	}}
	agent := NewExecutionAgent(broker, testConfig(), nil, store, nop())

	result := agent.Execute(context.Background(), "run-7", proposal())
	require.True(t, result.OK)

	trades, err := store.RecentTrades(context.Background(), "EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "run-7", trades[0].RunID)
	assert.Equal(t, int64(555001), trades[0].Ticket)
	assert.True(t, trades[0].Paper)
}

func TestExecutionFailureIsReportedNotFatal(t *testing.T) {
	store, err := memory.Open(filepath.Join(t.TempDir(), "exec.db"))
	require.NoError(t, err)
	defer store.Close()

	broker := &stubBroker{result: &models.OrderResult{
		OK: false, Symbol: "EURUSD", Side: "buy", Status: models.RecFailed, Message: "market closed",
	}}
	agent := NewExecutionAgent(broker, testConfig(), nil, store, nop())

	result := agent.Execute(context.Background(), "run", proposal())
	assert.False(t, result.OK)
	assert.Equal(t, models.RecFailed, result.Status)

	// Failed orders are never persisted as trades.
	trades, err := store.RecentTrades(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExecutionBrokerErrorBecomesFailedResult(t *testing.T) {
	broker := &stubBroker{err: assert.AnError}
	agent := NewExecutionAgent(broker, testConfig(), nil, nil, nop())

	result := agent.Execute(context.Background(), "run", proposal())
	assert.False(t, result.OK)
	assert.Equal(t, models.RecFailed, result.Status)
	assert.Contains(t, result.Message, assert.AnError.Error())
}
