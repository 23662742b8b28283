package agents

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// stubProvider returns a canned completion, or fails.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Ask(context.Context, string, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubProvider) Model() string { return "stub-model" }

// stubMarket serves canned data per symbol.
type stubMarket struct {
	bars      map[string][]models.Bar
	barsErr   error
	account   models.AccountState
	positions []models.Position
	deals     []models.ClosedDeal
}

func (m *stubMarket) Bars(_ context.Context, symbol string, _ models.Timeframe, count int) ([]models.Bar, error) {
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	bars := m.bars[symbol]
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (m *stubMarket) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	bars := m.bars[symbol]
	if len(bars) == 0 {
		return nil, models.ErrDataUnavailable
	}
	last := bars[len(bars)-1].Close
	return &models.Quote{Symbol: symbol, Bid: last - 0.0001, Ask: last + 0.0001}, nil
}

func (m *stubMarket) Account(context.Context) (*models.AccountState, error) {
	return &m.account, nil
}

func (m *stubMarket) Positions(context.Context) ([]models.Position, error) {
	return m.positions, nil
}

func (m *stubMarket) ClosedDeals(_ context.Context, since time.Time) ([]models.ClosedDeal, error) {
	var out []models.ClosedDeal
	for _, d := range m.deals {
		if !d.CloseTime.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

// trendBars builds count bars with a constant per-bar drift and range.
func trendBars(count int, start, drift, rng float64) []models.Bar {
	bars := make([]models.Bar, count)
	price := start
	t := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		open := price
		price += drift
		bars[i] = models.Bar{
			Time:   t.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   price + rng,
			Low:    open - rng,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTimeframe:  models.TFH1,
		MinTechConf:       0.65,
		ResearchMinScore:  0,
		ResearchMinATRPct: 0.00005,
		ResearchTopK:      2,
		ResearchMinRows:   200,
		ResearchWantRows:  1500,
		MaxDailyLoss:      0.05,
		MaxDrawdown:       0.20,
		MaxOpenPositions:  10,
		MaxPerInstrument:  1,
		DefaultLot:        0.01,
	}
}

func nop() zerolog.Logger { return zerolog.Nop() }
