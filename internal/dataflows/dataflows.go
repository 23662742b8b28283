// Package dataflows is the boundary to the outside world: the trade-server
// bridge for prices and account state, the news feed, the economic calendar
// and the fundamentals source. Agents depend on the interfaces here, never on
// a concrete backend, so the whole pipeline runs against the simulator in
// tests and demo mode.
package dataflows

import (
	"context"
	"math"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// MarketData serves prices and account state.
type MarketData interface {
	Bars(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Bar, error)
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	Account(ctx context.Context) (*models.AccountState, error)
	Positions(ctx context.Context) ([]models.Position, error)
	ClosedDeals(ctx context.Context, since time.Time) ([]models.ClosedDeal, error)
}

// OrderRequest is one market order to place.
type OrderRequest struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Volume float64 `json:"volume"`
}

// Execution places orders.
type Execution interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*models.OrderResult, error)
}

// NewsSource serves recent articles for the sentiment analyst.
type NewsSource interface {
	RecentNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// FundamentalsSource serves the macro quote summary for one symbol.
type FundamentalsSource interface {
	Summary(ctx context.Context, symbol string) (map[string]any, error)
}

// CalendarSource serves upcoming economic events.
type CalendarSource interface {
	UpcomingEvents(ctx context.Context) ([]models.CalendarEvent, error)
}

// RetryConfig configures the backoff for flaky upstreams.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// WithRetry executes fn with exponential backoff, honoring ctx cancellation
// between attempts.
func WithRetry(ctx context.Context, cfg *RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1)))
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
