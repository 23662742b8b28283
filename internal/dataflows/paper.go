package dataflows

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// PaperBroker simulates fills against live quotes without touching the
// account: buys fill at ask, sells at bid, tickets are synthetic six-digit
// numbers.
type PaperBroker struct {
	quotes interface {
		Quote(ctx context.Context, symbol string) (*models.Quote, error)
	}
	log zerolog.Logger
}

// NewPaperBroker wraps any quote source as an Execution backend.
func NewPaperBroker(quotes MarketData, log zerolog.Logger) *PaperBroker {
	return &PaperBroker{
		quotes: quotes,
		log:    log.With().Str("component", "paper").Logger(),
	}
}

// PlaceOrder fills immediately at the quoted price. A missing quote is the
// only failure mode.
func (p *PaperBroker) PlaceOrder(ctx context.Context, req OrderRequest) (*models.OrderResult, error) {
	result := &models.OrderResult{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     decimal.NewFromFloat(req.Volume),
		Status:     models.RecFailed,
		PaperTrade: true,
	}

	q, err := p.quotes.Quote(ctx, req.Symbol)
	if err != nil {
		result.Message = fmt.Sprintf("no quote for %s: %v", req.Symbol, err)
		return result, nil
	}

	price := q.Ask
	if req.Side == models.RecSell {
		price = q.Bid
	}

	result.OK = true
	result.Ticket = paperTicket()
	result.FillPrice = decimal.NewFromFloat(price)
	result.Status = models.RecExecutedPaper
	result.Message = "paper fill"

	p.log.Info().
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Float64("volume", req.Volume).
		Float64("price", price).
		Int64("ticket", result.Ticket).
		Msg("paper order filled")
	return result, nil
}

func paperTicket() int64 {
	return 100000 + rand.Int63n(900000)
}
