package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// BridgeClient talks to the terminal bridge REST service for live prices,
// account state and order execution. It implements MarketData and Execution.
type BridgeClient struct {
	client *resty.Client
	retry  *RetryConfig
	log    zerolog.Logger
}

// NewBridgeClient builds the client. The API key is optional for read-only
// endpoints; the bridge rejects unauthenticated order calls.
func NewBridgeClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *BridgeClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &BridgeClient{
		client: client,
		retry:  DefaultRetryConfig(),
		log:    log.With().Str("component", "bridge").Logger(),
	}
}

func (b *BridgeClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	err := WithRetry(ctx, b.retry, func() error {
		resp, err := b.client.R().SetContext(ctx).SetQueryParams(params).Get(path)
		if err != nil {
			return fmt.Errorf("bridge %s: %w", path, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("bridge %s: status %d: %s", path, resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("bridge %s: parse: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return nil
}

// Bars fetches up to count bars, oldest first.
func (b *BridgeClient) Bars(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Bar, error) {
	var bars []models.Bar
	err := b.get(ctx, "/bars", map[string]string{
		"symbol":    symbol,
		"timeframe": string(tf),
		"count":     strconv.Itoa(count),
	}, &bars)
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// Quote fetches the current bid/ask.
func (b *BridgeClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var q models.Quote
	if err := b.get(ctx, "/quote", map[string]string{"symbol": symbol}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Account fetches the current account snapshot.
func (b *BridgeClient) Account(ctx context.Context) (*models.AccountState, error) {
	var acc models.AccountState
	if err := b.get(ctx, "/account", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Positions fetches the currently open positions.
func (b *BridgeClient) Positions(ctx context.Context) ([]models.Position, error) {
	var pos []models.Position
	if err := b.get(ctx, "/positions", nil, &pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// ClosedDeals fetches deals closed since the given time.
func (b *BridgeClient) ClosedDeals(ctx context.Context, since time.Time) ([]models.ClosedDeal, error) {
	var deals []models.ClosedDeal
	err := b.get(ctx, "/deals", map[string]string{
		"since": since.UTC().Format(time.RFC3339),
	}, &deals)
	if err != nil {
		return nil, err
	}
	return deals, nil
}

type bridgeOrderResponse struct {
	OK        bool    `json:"ok"`
	Ticket    int64   `json:"ticket"`
	FillPrice float64 `json:"fill_price"`
	Message   string  `json:"message"`
}

// PlaceOrder submits a market order. A transport failure or a rejected order
// comes back as a failed OrderResult, not an error; the caller's decision is
// already final by the time execution runs.
func (b *BridgeClient) PlaceOrder(ctx context.Context, req OrderRequest) (*models.OrderResult, error) {
	result := &models.OrderResult{
		Symbol: req.Symbol,
		Side:   req.Side,
		Volume: decimal.NewFromFloat(req.Volume),
		Status: models.RecFailed,
	}

	resp, err := b.client.R().SetContext(ctx).SetBody(req).Post("/order")
	if err != nil {
		result.Message = err.Error()
		b.log.Error().Err(err).Str("symbol", req.Symbol).Msg("order transport failed")
		return result, nil
	}
	if resp.StatusCode() != 200 {
		result.Message = fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())
		b.log.Error().Int("status", resp.StatusCode()).Str("symbol", req.Symbol).Msg("order rejected")
		return result, nil
	}

	var parsed bridgeOrderResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		result.Message = fmt.Sprintf("parse order response: %v", err)
		return result, nil
	}

	result.OK = parsed.OK
	result.Ticket = parsed.Ticket
	result.FillPrice = decimal.NewFromFloat(parsed.FillPrice)
	result.Message = parsed.Message
	if parsed.OK {
		result.Status = models.RecExecuted
	}
	return result, nil
}
