// Package agents holds the analyst council: research screening, technical,
// fundamental and sentiment analysis, the risk gate and order execution. Each
// agent returns a normalized AnalysisResult; model output is advisory and
// every agent has a deterministic fallback when the provider is unavailable
// or its answer does not parse.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Agent names, used in results, memory and journal records.
const (
	NameResearch    = "research"
	NameTechnical   = "technical"
	NameFundamental = "fundamental"
	NameSentiment   = "sentiment"
	NameRisk        = "risk"
	NameExecution   = "execution"
)

// minAcceptConfidence is the floor below which the technical agent discards a
// model verdict in favor of the indicator majority. The other analysts take
// any well-formed verdict at face value.
const minAcceptConfidence = 0.6

// Verdict is the JSON shape every analyst prompt asks the model to return.
type Verdict struct {
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Valid reports whether the verdict carries a known directional answer.
func (v *Verdict) Valid() bool {
	switch v.Recommendation {
	case models.RecBuy, models.RecSell, models.RecHold:
		return true
	}
	return false
}

// base carries the collaborators every analyst shares.
type base struct {
	name     string
	provider llm.Provider
	auditor  *audit.Logger
	ring     *memory.Ring
	store    *memory.Store
	log      zerolog.Logger
}

func newBase(name string, provider llm.Provider, auditor *audit.Logger, ring *memory.Ring, store *memory.Store, log zerolog.Logger) base {
	return base{
		name:     name,
		provider: provider,
		auditor:  auditor,
		ring:     ring,
		store:    store,
		log:      log.With().Str("agent", name).Logger(),
	}
}

// askVerdict runs one provider exchange, journals it, and parses the JSON
// verdict. Returns nil when the provider is unavailable or the answer does
// not parse; callers fall back deterministically.
func (b *base) askVerdict(ctx context.Context, runID, system, user string) *Verdict {
	if b.provider == nil {
		return nil
	}

	response, err := b.provider.Ask(ctx, system, user)
	if err != nil {
		b.log.Warn().Err(err).Msg("provider call failed, using fallback")
		return nil
	}
	if b.auditor != nil {
		b.auditor.LogLLMCall(runID, b.name, b.provider.Model(), system, user, response)
	}

	var v Verdict
	if err := llm.ExtractJSON(response, &v); err != nil {
		b.log.Warn().Err(err).Msg("unparseable verdict, using fallback")
		return nil
	}
	v.Recommendation = strings.ToLower(strings.TrimSpace(v.Recommendation))
	return &v
}

// remember writes one note to short-term memory and, when a store is wired,
// to long-term memory. Persistence failures are logged, never fatal.
func (b *base) remember(ctx context.Context, symbol, content string) {
	if b.ring != nil {
		b.ring.Add(memory.Entry{Agent: b.name, Symbol: symbol, Content: content})
	}
	if b.store != nil {
		if err := b.store.SaveMemory(ctx, b.name, symbol, content); err != nil {
			b.log.Warn().Err(err).Msg("long-term memory write failed")
		}
	}
}

// recentContext renders the agent's short-term memory as prompt context.
func (b *base) recentContext(n int) string {
	if b.ring == nil {
		return ""
	}
	entries := b.ring.Recent(n)
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Recent observations:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "- [%s] %s\n", e.Symbol, e.Content)
	}
	return sb.String()
}
