package models

import "time"

// CycleState carries one orchestration pass through the pipeline graph. It is
// created per cycle and discarded afterwards; nothing in it survives across
// cycles except what the agents write to memory.
type CycleState struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Instruments []Instrument `json:"instruments"`

	Candidates []Candidate `json:"candidates"`
	Top        *Candidate  `json:"top,omitempty"`

	Research    *AnalysisResult `json:"research,omitempty"`
	Technical   *AnalysisResult `json:"technical,omitempty"`
	Fundamental *AnalysisResult `json:"fundamental,omitempty"`
	Sentiment   *AnalysisResult `json:"sentiment,omitempty"`
	Risk        *AnalysisResult `json:"risk,omitempty"`

	Proposed *ProposedTrade `json:"proposed,omitempty"`
	Order    *OrderResult   `json:"order,omitempty"`

	Decision *TradeDecision `json:"decision,omitempty"`
}

// NewCycleState seeds a cycle with its run id and instrument universe.
func NewCycleState(runID string, instruments []Instrument) *CycleState {
	return &CycleState{
		RunID:       runID,
		StartedAt:   time.Now().UTC(),
		Instruments: instruments,
	}
}

// Votes assembles the three analyst recommendations. Missing results count as
// hold so the map always has exactly three entries before the risk gate.
func (s *CycleState) Votes() map[string]string {
	rec := func(r *AnalysisResult) string {
		if r == nil {
			return RecHold
		}
		return r.Recommendation
	}
	return map[string]string{
		"tech": rec(s.Technical),
		"fund": rec(s.Fundamental),
		"sent": rec(s.Sentiment),
	}
}
