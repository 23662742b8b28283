package agents

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/indicators"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const (
	researchScoreBase = 1e-4
	researchMomWeight = 1e-4
	fallbackTimeframe = models.TFM5
	fallbackMinRows   = 50
)

// ResearchAgent screens the instrument universe down to volatile, trending
// candidates worth spending analyst calls on. Fully deterministic: same bars
// in, same candidates out.
type ResearchAgent struct {
	market dataflows.MarketData
	cfg    *config.Config
	ring   *memory.Ring
	log    zerolog.Logger
}

// NewResearchAgent builds the screener.
func NewResearchAgent(market dataflows.MarketData, cfg *config.Config, ring *memory.Ring, log zerolog.Logger) *ResearchAgent {
	return &ResearchAgent{
		market: market,
		cfg:    cfg,
		ring:   ring,
		log:    log.With().Str("agent", NameResearch).Logger(),
	}
}

// Screen ranks the universe and returns admitted candidates, best first. When
// the primary pass admits nothing and a fallback budget is configured, it
// reruns on a faster timeframe with a relaxed gate and keeps the top few by
// score, so quiet sessions still produce work. A zero budget disables the
// fallback entirely and the quiet cycle ends in no action.
func (a *ResearchAgent) Screen(ctx context.Context, instruments []models.Instrument) ([]models.Candidate, *models.AnalysisResult) {
	universe := a.universe(instruments)

	candidates := a.pass(ctx, universe, false)
	if len(candidates) == 0 && a.cfg.ResearchTopK > 0 {
		a.log.Info().Msg("primary screen empty, running fallback pass")
		candidates = a.pass(ctx, universe, true)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	if len(candidates) == 0 {
		return nil, models.NewAnalysisResult(NameResearch, models.RecNoAction, 0.5,
			"no instrument passed the volatility screen", nil)
	}

	reasoning := fmt.Sprintf("screened %d instruments, admitted %d, top %s",
		len(universe), len(candidates), candidates[0].Symbol)
	if a.ring != nil {
		a.ring.Add(memory.Entry{Agent: NameResearch, Symbol: candidates[0].Symbol, Content: reasoning})
	}
	return candidates, models.NewAnalysisResult(NameResearch, models.RecHold, 0.5, reasoning, map[string]any{
		"universe":   len(universe),
		"candidates": len(candidates),
	})
}

// universe applies the force-symbols override, otherwise the configured
// enabled instruments.
func (a *ResearchAgent) universe(instruments []models.Instrument) []models.Instrument {
	if len(a.cfg.ForceSymbols) > 0 {
		tf := a.cfg.DefaultTimeframe
		if a.cfg.ForceTimeframe != "" {
			tf = a.cfg.ForceTimeframe
		}
		out := make([]models.Instrument, 0, len(a.cfg.ForceSymbols))
		for _, sym := range a.cfg.ForceSymbols {
			out = append(out, models.Instrument{Symbol: sym, Timeframe: tf, Enabled: true})
		}
		return out
	}

	out := make([]models.Instrument, 0, len(instruments))
	for _, in := range instruments {
		if !in.Enabled {
			continue
		}
		if a.cfg.ForceTimeframe != "" {
			in.Timeframe = a.cfg.ForceTimeframe
		}
		out = append(out, in)
	}
	return out
}

func (a *ResearchAgent) pass(ctx context.Context, universe []models.Instrument, fallback bool) []models.Candidate {
	var out []models.Candidate
	for _, in := range universe {
		tf := in.Timeframe
		want := a.cfg.ResearchWantRows
		minRows := a.cfg.ResearchMinRows
		if fallback {
			tf = fallbackTimeframe
			want = maxInt(600, a.cfg.ResearchMinRows)
			minRows = fallbackMinRows
		}

		bars, tf, ok := a.fetchBars(ctx, in.Symbol, tf, want, minRows, !fallback)
		if !ok {
			continue
		}

		mom, atrPct := momentumAndATR(bars)
		if fallback {
			score := researchScoreBase + atrPct
			a.diag("%s %s fallback: atr_pct=%.6f score=%.6f", in.Symbol, tf, atrPct, score)
			out = append(out, models.Candidate{
				Symbol:    in.Symbol,
				Timeframe: tf,
				Priority:  score,
				Meta:      map[string]float64{"atr_pct": atrPct, "momentum": mom},
			})
			continue
		}

		score := math.Max(a.cfg.ResearchMinScore, researchScoreBase+math.Max(mom, 0)*researchMomWeight+atrPct)
		a.diag("%s %s: mom=%.6f atr_pct=%.6f score=%.6f", in.Symbol, tf, mom, atrPct, score)
		if atrPct < a.cfg.ResearchMinATRPct || score < a.cfg.ResearchMinScore {
			continue
		}
		out = append(out, models.Candidate{
			Symbol:    in.Symbol,
			Timeframe: tf,
			Priority:  score,
			Meta:      map[string]float64{"atr_pct": atrPct, "momentum": mom},
		})
	}

	if fallback && len(out) > a.cfg.ResearchTopK && a.cfg.ResearchTopK > 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
		out = out[:a.cfg.ResearchTopK]
	}
	return out
}

// fetchBars serves usable history for one instrument. When the requested
// timeframe errors or comes up short and retryAlt is set, it tries the faster
// fallback timeframe once before giving up; the returned timeframe is the one
// that actually served the bars.
func (a *ResearchAgent) fetchBars(ctx context.Context, symbol string, tf models.Timeframe, want, minRows int, retryAlt bool) ([]models.Bar, models.Timeframe, bool) {
	bars, err := a.market.Bars(ctx, symbol, tf, want)
	if err == nil && len(bars) >= minRows {
		return bars, tf, true
	}
	if err != nil {
		a.diag("%s %s: bars unavailable: %v", symbol, tf, err)
	} else {
		a.diag("%s %s: %d rows, need %d", symbol, tf, len(bars), minRows)
	}
	if !retryAlt || tf == fallbackTimeframe {
		return nil, tf, false
	}

	alt, err := a.market.Bars(ctx, symbol, fallbackTimeframe, maxInt(600, want))
	if err != nil || len(alt) < minRows {
		a.diag("%s %s retry: no usable history", symbol, fallbackTimeframe)
		return nil, tf, false
	}
	a.diag("%s: served on %s after %s came up short", symbol, fallbackTimeframe, tf)
	return alt, fallbackTimeframe, true
}

// momentumAndATR derives the two screening inputs: close minus the 10-bar
// SMA, and ATR(14) as a fraction of the close.
func momentumAndATR(bars []models.Bar) (mom, atrPct float64) {
	closes := bars[len(bars)-1].Close
	sma := indicators.SMA(bars, 10)
	atr := indicators.ATRSeries(bars, 14)

	lastSMA := lastFinite(sma)
	lastATR := lastFinite(atr)

	mom = closes - lastSMA
	if closes != 0 {
		atrPct = lastATR / closes
	}
	return mom, atrPct
}

func lastFinite(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) && vals[i] != 0 {
			return vals[i]
		}
	}
	return 0
}

func (a *ResearchAgent) diag(format string, args ...any) {
	if a.cfg.DebugResearch {
		a.log.Debug().Msgf("[diag] "+format, args...)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
