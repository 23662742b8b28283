package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const fundamentalSystemPrompt = `You are a macro and fundamentals analyst for FX and metals.
You receive a quote summary for one instrument: current price, ranges, previous close.
Answer with a single JSON object: {"recommendation": "buy"|"sell"|"hold", "confidence": 0.0-1.0, "reasoning": "..."}.
Without a clear fundamental edge, answer hold.`

// FundamentalAgent votes from the macro quote summary. Missing data is a
// neutral vote, never a failed cycle.
type FundamentalAgent struct {
	base
	source dataflows.FundamentalsSource
}

// NewFundamentalAgent builds the analyst.
func NewFundamentalAgent(source dataflows.FundamentalsSource, provider llm.Provider, auditor *audit.Logger, ring *memory.Ring, store *memory.Store, log zerolog.Logger) *FundamentalAgent {
	return &FundamentalAgent{
		base:   newBase(NameFundamental, provider, auditor, ring, store, log),
		source: source,
	}
}

// Analyze produces the fundamental vote for one candidate.
func (a *FundamentalAgent) Analyze(ctx context.Context, runID string, c *models.Candidate) *models.AnalysisResult {
	summary, err := a.source.Summary(ctx, c.Symbol)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("fundamentals unavailable")
		return models.NewAnalysisResult(NameFundamental, models.RecHold, 0.5,
			"fundamental data unavailable", nil)
	}

	data := map[string]any{"summary": summary}
	payload, _ := json.Marshal(summary)
	user := fmt.Sprintf("Instrument: %s.\nQuote summary:\n%s\n%s", c.Symbol, payload, a.recentContext(5))

	result := models.NewAnalysisResult(NameFundamental, models.RecHold, 0.5,
		"no clear fundamental edge", data)
	if v := a.askVerdict(ctx, runID, fundamentalSystemPrompt, user); v != nil && v.Valid() {
		result = models.NewAnalysisResult(NameFundamental, v.Recommendation, v.Confidence, v.Reasoning, data)
	}

	a.remember(ctx, c.Symbol, fmt.Sprintf("%s %s conf %.2f", result.Recommendation, c.Symbol, result.Confidence))
	return result
}
