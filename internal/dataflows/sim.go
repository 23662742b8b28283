package dataflows

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// SimSource is a deterministic in-memory MarketData for demo mode and tests.
// Each symbol gets a reproducible random walk seeded from its name, so the
// same symbol always produces the same series.
type SimSource struct {
	mu        sync.Mutex
	account   models.AccountState
	positions []models.Position
	deals     []models.ClosedDeal
	now       time.Time
}

// NewSimSource starts with a flat 10k account.
func NewSimSource() *SimSource {
	return &SimSource{
		account: models.AccountState{
			Balance:    10000,
			Equity:     10000,
			MarginFree: 10000,
		},
		now: time.Now().UTC().Truncate(time.Hour),
	}
}

// SetAccount overrides the simulated account, for risk-scenario tests.
func (s *SimSource) SetAccount(acc models.AccountState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = acc
}

// SetPositions overrides the simulated open positions.
func (s *SimSource) SetPositions(pos []models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = pos
}

// SetClosedDeals overrides the simulated deal history.
func (s *SimSource) SetClosedDeals(deals []models.ClosedDeal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = deals
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func basePrice(symbol string) float64 {
	// Spread starting prices out so correlation between different walks
	// stays low. The hash is taken unsigned to keep the price above 1.
	return 1 + float64(uint64(symbolSeed(symbol))%1000)/100
}

// Bars generates count bars ending at the source clock, oldest first.
func (s *SimSource) Bars(_ context.Context, symbol string, tf models.Timeframe, count int) ([]models.Bar, error) {
	s.mu.Lock()
	end := s.now
	s.mu.Unlock()

	rng := rand.New(rand.NewSource(symbolSeed(symbol)))
	price := basePrice(symbol)
	step := tf.Duration()

	bars := make([]models.Bar, count)
	for i := 0; i < count; i++ {
		drift := 0.0004*math.Sin(float64(i)/12) + (rng.Float64()-0.5)*0.002
		open := price
		price *= 1 + drift
		high := math.Max(open, price) * (1 + rng.Float64()*0.0008)
		low := math.Min(open, price) * (1 - rng.Float64()*0.0008)
		bars[i] = models.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 500 + rng.Int63n(1500),
		}
	}
	return bars, nil
}

// Quote derives bid/ask from the last simulated close with a small spread.
func (s *SimSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	bars, err := s.Bars(ctx, symbol, models.TFM1, 300)
	if err != nil {
		return nil, err
	}
	last := bars[len(bars)-1].Close
	spread := last * 0.0001
	return &models.Quote{
		Symbol: symbol,
		Bid:    last - spread/2,
		Ask:    last + spread/2,
	}, nil
}

func (s *SimSource) Account(context.Context) (*models.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.account
	return &acc, nil
}

func (s *SimSource) Positions(context.Context) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Position, len(s.positions))
	copy(out, s.positions)
	return out, nil
}

func (s *SimSource) ClosedDeals(_ context.Context, since time.Time) ([]models.ClosedDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ClosedDeal
	for _, d := range s.deals {
		if !d.CloseTime.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}
