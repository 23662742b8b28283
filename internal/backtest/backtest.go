// Package backtest replays a moving-average crossover over historical bars.
// It exists to sanity-check data plumbing and sizing, not to validate the
// live pipeline.
package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/indicators"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const (
	fastPeriod = 10
	slowPeriod = 30
)

// Trade is one completed round trip.
type Trade struct {
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Profit     float64 `json:"profit"`
}

// Report summarizes one backtest run.
type Report struct {
	Symbol      string           `json:"symbol"`
	Timeframe   models.Timeframe `json:"timeframe"`
	Bars        int              `json:"bars"`
	Trades      []Trade          `json:"trades"`
	NetProfit   decimal.Decimal  `json:"net_profit"`
	WinRate     float64          `json:"win_rate"`
	MaxDrawdown float64          `json:"max_drawdown"`
}

// Engine runs crossover backtests against any bar source.
type Engine struct {
	market dataflows.MarketData
	log    zerolog.Logger
}

// NewEngine builds the engine.
func NewEngine(market dataflows.MarketData, log zerolog.Logger) *Engine {
	return &Engine{market: market, log: log.With().Str("component", "backtest").Logger()}
}

// Run fetches bars and replays the crossover strategy: long when the fast
// average crosses above the slow one, flat or short on the opposite cross.
func (e *Engine) Run(ctx context.Context, symbol string, tf models.Timeframe, count int) (*Report, error) {
	bars, err := e.market.Bars(ctx, symbol, tf, count)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", symbol, err)
	}
	if len(bars) <= slowPeriod {
		return nil, fmt.Errorf("backtest %s: %w: need more than %d bars, have %d",
			symbol, models.ErrDataUnavailable, slowPeriod, len(bars))
	}

	report := Replay(bars)
	report.Symbol = symbol
	report.Timeframe = tf
	e.log.Info().
		Str("symbol", symbol).
		Int("trades", len(report.Trades)).
		Str("net", report.NetProfit.StringFixed(5)).
		Msg("backtest complete")
	return report, nil
}

// Replay runs the strategy over prepared bars. Exposed for deterministic
// testing without a bar source.
func Replay(bars []models.Bar) *Report {
	fast := indicators.SMA(bars, fastPeriod)
	slow := indicators.SMA(bars, slowPeriod)

	report := &Report{Bars: len(bars)}
	var (
		direction  string
		entryPrice float64
		equity     float64
		peak       float64
	)

	closeTrade := func(exit float64) {
		profit := exit - entryPrice
		if direction == models.RecSell {
			profit = entryPrice - exit
		}
		report.Trades = append(report.Trades, Trade{
			Direction:  direction,
			EntryPrice: entryPrice,
			ExitPrice:  exit,
			Profit:     profit,
		})
		equity += profit
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > report.MaxDrawdown {
			report.MaxDrawdown = dd
		}
		direction = ""
	}

	for i := slowPeriod; i < len(bars); i++ {
		if !finite(fast[i]) || !finite(slow[i]) || !finite(fast[i-1]) || !finite(slow[i-1]) {
			continue
		}
		crossUp := fast[i-1] <= slow[i-1] && fast[i] > slow[i]
		crossDown := fast[i-1] >= slow[i-1] && fast[i] < slow[i]
		price := bars[i].Close

		switch {
		case crossUp:
			if direction == models.RecSell {
				closeTrade(price)
			}
			if direction == "" {
				direction = models.RecBuy
				entryPrice = price
			}
		case crossDown:
			if direction == models.RecBuy {
				closeTrade(price)
			}
			if direction == "" {
				direction = models.RecSell
				entryPrice = price
			}
		}
	}
	if direction != "" {
		closeTrade(bars[len(bars)-1].Close)
	}

	var wins int
	net := 0.0
	for _, tr := range report.Trades {
		net += tr.Profit
		if tr.Profit > 0 {
			wins++
		}
	}
	report.NetProfit = decimal.NewFromFloat(net)
	if len(report.Trades) > 0 {
		report.WinRate = float64(wins) / float64(len(report.Trades))
	}
	return report
}

func finite(f float64) bool {
	return !math.IsNaN(f) && f != 0
}
