package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// stubFundamentals serves a canned quote summary.
type stubFundamentals struct {
	summary map[string]any
	err     error
}

func (s *stubFundamentals) Summary(context.Context, string) (map[string]any, error) {
	return s.summary, s.err
}

func TestFundamentalUnavailableDataAbstains(t *testing.T) {
	agent := NewFundamentalAgent(&stubFundamentals{err: models.ErrDataUnavailable}, nil, nil, nil, nil, nop())

	result := agent.Analyze(context.Background(), "run", candidate("EURUSD"))
	assert.Equal(t, models.RecHold, result.Recommendation)
	assert.Equal(t, "fundamental data unavailable", result.Reasoning)
}

func TestFundamentalNoProviderAbstains(t *testing.T) {
	agent := NewFundamentalAgent(&stubFundamentals{summary: map[string]any{"price": 1.08}}, nil, nil, nil, nil, nop())

	result := agent.Analyze(context.Background(), "run", candidate("EURUSD"))
	assert.Equal(t, models.RecHold, result.Recommendation)
	assert.Equal(t, "no clear fundamental edge", result.Reasoning)
}

func TestFundamentalAcceptsLowConfidenceModelVerdict(t *testing.T) {
	provider := &stubProvider{response: `{"recommendation":"buy","confidence":0.45,"reasoning":"rate differential"}`}
	agent := NewFundamentalAgent(&stubFundamentals{summary: map[string]any{"price": 1.08}}, provider, nil, nil, nil, nop())

	// A tentative model answer still replaces the neutral default.
	result := agent.Analyze(context.Background(), "run", candidate("EURUSD"))
	assert.Equal(t, models.RecBuy, result.Recommendation)
	assert.Equal(t, 0.45, result.Confidence)
	assert.Equal(t, "rate differential", result.Reasoning)
}
