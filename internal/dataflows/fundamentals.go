package dataflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// FundamentalsClient pulls the macro-level quote summary the fundamental
// analyst reasons over: day and year ranges, previous close, market state.
type FundamentalsClient struct {
	log zerolog.Logger
}

// NewFundamentalsClient builds the client.
func NewFundamentalsClient(log zerolog.Logger) *FundamentalsClient {
	return &FundamentalsClient{log: log.With().Str("component", "fundamentals").Logger()}
}

// yahooSymbol maps a terminal symbol to its quote-service form: currency
// pairs get the =X suffix, everything else passes through.
func yahooSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) == 6 && !strings.ContainsAny(symbol, ".=-") {
		return symbol + "=X"
	}
	return symbol
}

// Summary fetches the quote summary for one symbol. Upstream failures map to
// ErrDataUnavailable; the fundamental analyst degrades to hold.
func (f *FundamentalsClient) Summary(ctx context.Context, symbol string) (map[string]any, error) {
	ys := yahooSymbol(symbol)

	var out map[string]any
	err := WithRetry(ctx, DefaultRetryConfig(), func() error {
		q, err := quote.Get(ys)
		if err != nil {
			return fmt.Errorf("quote %s: %w", ys, err)
		}
		if q == nil {
			return fmt.Errorf("quote %s: empty response", ys)
		}
		out = map[string]any{
			"symbol":           symbol,
			"price":            q.RegularMarketPrice,
			"prev_close":       q.RegularMarketPreviousClose,
			"day_high":         q.RegularMarketDayHigh,
			"day_low":          q.RegularMarketDayLow,
			"change_pct":       q.RegularMarketChangePercent,
			"fifty_two_w_high": q.FiftyTwoWeekHigh,
			"fifty_two_w_low":  q.FiftyTwoWeekLow,
			"market_state":     string(q.MarketState),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	f.log.Debug().Str("symbol", symbol).Msg("fundamentals fetched")
	return out, nil
}
