package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/indicators"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const technicalBars = 500

const technicalSystemPrompt = `You are a technical analyst for leveraged FX and metals trading.
You receive computed indicator values for one instrument.
Answer with a single JSON object: {"recommendation": "buy"|"sell"|"hold", "confidence": 0.0-1.0, "reasoning": "..."}.
Be decisive only when several indicators agree.`

// TechnicalAgent reads the indicator snapshot and asks the model for a
// directional verdict. Indicator majority is both the fallback and the
// sanity floor: a missing or low-confidence model answer never blocks the
// cycle.
type TechnicalAgent struct {
	base
	market dataflows.MarketData
}

// NewTechnicalAgent builds the analyst.
func NewTechnicalAgent(market dataflows.MarketData, provider llm.Provider, auditor *audit.Logger, ring *memory.Ring, store *memory.Store, log zerolog.Logger) *TechnicalAgent {
	return &TechnicalAgent{
		base:   newBase(NameTechnical, provider, auditor, ring, store, log),
		market: market,
	}
}

// Analyze produces the technical vote for one candidate.
func (a *TechnicalAgent) Analyze(ctx context.Context, runID string, c *models.Candidate) *models.AnalysisResult {
	bars, err := a.market.Bars(ctx, c.Symbol, c.Timeframe, technicalBars)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("bars unavailable")
		return models.NewAnalysisResult(NameTechnical, models.RecInsufficientData, 0,
			fmt.Sprintf("market data unavailable for %s", c.Symbol), nil)
	}

	snapshot, err := indicators.Compute(bars)
	if err != nil {
		return models.NewAnalysisResult(NameTechnical, models.RecInsufficientData, 0,
			fmt.Sprintf("%d bars for %s, below the indicator minimum", len(bars), c.Symbol), nil)
	}

	result := a.decide(ctx, runID, c, snapshot)
	a.remember(ctx, c.Symbol, fmt.Sprintf("%s %s conf %.2f (%s overall)",
		result.Recommendation, c.Symbol, result.Confidence, snapshot.Overall))
	return result
}

func (a *TechnicalAgent) decide(ctx context.Context, runID string, c *models.Candidate, s *indicators.Snapshot) *models.AnalysisResult {
	data := map[string]any{"snapshot": s}

	payload, _ := json.Marshal(s)
	user := fmt.Sprintf("Instrument: %s, timeframe: %s.\nIndicators:\n%s\n%s",
		c.Symbol, c.Timeframe, payload, a.recentContext(5))

	if v := a.askVerdict(ctx, runID, technicalSystemPrompt, user); v != nil && v.Valid() && v.Confidence >= minAcceptConfidence {
		return models.NewAnalysisResult(NameTechnical, v.Recommendation, v.Confidence, v.Reasoning, data)
	}

	// Indicator-majority fallback.
	switch s.Overall {
	case indicators.SignalBullish:
		return models.NewAnalysisResult(NameTechnical, models.RecBuy, 0.6,
			"indicator majority bullish", data)
	case indicators.SignalBearish:
		return models.NewAnalysisResult(NameTechnical, models.RecSell, 0.6,
			"indicator majority bearish", data)
	default:
		return models.NewAnalysisResult(NameTechnical, models.RecHold, 0.5,
			"indicators mixed", data)
	}
}
