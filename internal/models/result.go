package models

import (
	"errors"
	"time"
)

// Recommendation values emitted by agents. buy/sell/hold are directional;
// the rest are diagnostic states that never trigger a trade.
const (
	RecBuy              = "buy"
	RecSell             = "sell"
	RecHold             = "hold"
	RecApprove          = "approve"
	RecReject           = "reject"
	RecError            = "error"
	RecInsufficientData = "insufficient_data"
	RecNoAction         = "no_action"
	RecExecuted         = "executed"
	RecExecutedPaper    = "executed_paper"
	RecFailed           = "failed"
)

// Failure kinds external collaborators report. Agents match on these with
// errors.Is instead of sniffing a recommendation string.
var (
	ErrDataUnavailable     = errors.New("market data unavailable")
	ErrProviderUnavailable = errors.New("reasoning provider unavailable")
)

// AnalysisResult is the normalized artifact every agent invocation returns.
// Immutable once returned; written to agent memory and the audit journal.
type AnalysisResult struct {
	Agent          string         `json:"agent"`
	Recommendation string         `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	Data           map[string]any `json:"data"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewAnalysisResult stamps the result with the current time. Data is never
// nil so journal records stay uniform.
func NewAnalysisResult(agent, recommendation string, confidence float64, reasoning string, data map[string]any) *AnalysisResult {
	if data == nil {
		data = map[string]any{}
	}
	return &AnalysisResult{
		Agent:          agent,
		Recommendation: recommendation,
		Confidence:     confidence,
		Reasoning:      reasoning,
		Data:           data,
		Timestamp:      time.Now().UTC(),
	}
}

// IsDirectional reports whether the recommendation proposes a trade.
func (r *AnalysisResult) IsDirectional() bool {
	return r.Recommendation == RecBuy || r.Recommendation == RecSell
}
