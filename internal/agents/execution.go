package agents

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// ExecutionAgent turns an approved proposal into an order. Execution never
// reverses a decision: a failed order is journaled as failed and the decision
// stands.
type ExecutionAgent struct {
	broker  dataflows.Execution
	cfg     *config.Config
	auditor *audit.Logger
	store   *memory.Store
	log     zerolog.Logger
}

// NewExecutionAgent builds the executor over the configured broker, paper or
// live.
func NewExecutionAgent(broker dataflows.Execution, cfg *config.Config, auditor *audit.Logger, store *memory.Store, log zerolog.Logger) *ExecutionAgent {
	return &ExecutionAgent{
		broker:  broker,
		cfg:     cfg,
		auditor: auditor,
		store:   store,
		log:     log.With().Str("agent", NameExecution).Logger(),
	}
}

// lotSize picks the order volume: the test override when set, otherwise the
// configured default lot.
func (a *ExecutionAgent) lotSize() float64 {
	if a.cfg.TestLot > 0 {
		return a.cfg.TestLot
	}
	return a.cfg.DefaultLot
}

// Execute places the order and journals the outcome.
func (a *ExecutionAgent) Execute(ctx context.Context, runID string, proposed *models.ProposedTrade) *models.OrderResult {
	req := dataflows.OrderRequest{
		Symbol: proposed.Instrument,
		Side:   proposed.Direction,
		Volume: a.lotSize(),
	}

	result, err := a.broker.PlaceOrder(ctx, req)
	if err != nil {
		// Broker implementations report failures in the result; an error
		// here means the call itself never happened.
		result = &models.OrderResult{
			Symbol:  req.Symbol,
			Side:    req.Side,
			Status:  models.RecFailed,
			Message: err.Error(),
		}
	}

	if a.auditor != nil {
		a.auditor.LogOrder(runID, result)
	}
	if a.store != nil && result.OK {
		rec := memory.TradeRecord{
			RunID:     runID,
			Symbol:    result.Symbol,
			Side:      result.Side,
			Volume:    result.Volume.InexactFloat64(),
			FillPrice: result.FillPrice.InexactFloat64(),
			Ticket:    result.Ticket,
			Paper:     result.PaperTrade,
		}
		if err := a.store.SaveTrade(ctx, rec); err != nil {
			a.log.Warn().Err(err).Msg("trade persist failed")
		}
	}

	evt := a.log.Info()
	if !result.OK {
		evt = a.log.Error()
	}
	evt.Str("symbol", result.Symbol).
		Str("side", result.Side).
		Str("status", result.Status).
		Int64("ticket", result.Ticket).
		Bool("paper", result.PaperTrade).
		Msg("order executed")
	return result
}
