package models

import "github.com/shopspring/decimal"

// Candidate is an instrument the research stage scored as worth analyzing.
// Produced fresh each cycle, never persisted.
type Candidate struct {
	Symbol    string             `json:"symbol"`
	Timeframe Timeframe          `json:"timeframe"`
	Priority  float64            `json:"priority"`
	Meta      map[string]float64 `json:"meta,omitempty"`
}

// ProposedTrade is the directional intent handed to the risk gate. Only ever
// constructed for buy/sell, never hold.
type ProposedTrade struct {
	Instrument string    `json:"instrument"`
	Direction  string    `json:"direction"`
	Timeframe  Timeframe `json:"timeframe"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
}

// RiskCheckSet holds the account-level risk checks plus the numbers behind
// them. Computed fresh per evaluation.
type RiskCheckSet struct {
	SufficientBalance bool    `json:"sufficient_balance"`
	EquityCheck       bool    `json:"equity_check"`
	MarginLevelOK     bool    `json:"margin_level_ok"`
	DailyLossOK       bool    `json:"daily_loss_ok"`
	DrawdownOK        bool    `json:"drawdown_ok"`
	DailyLoss         float64 `json:"daily_loss"`
	MaxDailyLoss      float64 `json:"max_daily_loss"`
	Drawdown          float64 `json:"drawdown"`
}

// PositionLimitCheck holds the position-cap checks.
type PositionLimitCheck struct {
	TotalPositions      int  `json:"total_positions"`
	MaxPositions        int  `json:"max_positions"`
	PositionsOK         bool `json:"positions_ok"`
	InstrumentPositions int  `json:"instrument_positions"`
	MaxPerInstrument    int  `json:"max_per_instrument"`
	InstrumentOK        bool `json:"instrument_ok"`
}

// CorrelationFlag marks one highly correlated open-position pair. Informational
// in the default policy.
type CorrelationFlag struct {
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	Correlation float64 `json:"correlation"`
}

// OrderResult is the normalized outcome of one order attempt, paper or live.
type OrderResult struct {
	OK         bool            `json:"ok"`
	Ticket     int64           `json:"ticket,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Volume     decimal.Decimal `json:"volume"`
	FillPrice  decimal.Decimal `json:"fill_price"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	PaperTrade bool            `json:"paper_trade"`
}

// TradeDecision is the terminal artifact of one orchestration cycle.
type TradeDecision struct {
	Symbol         string            `json:"symbol"`
	Timeframe      Timeframe         `json:"timeframe"`
	Recommendation string            `json:"recommendation"`
	Confidence     float64           `json:"confidence"`
	Reasoning      string            `json:"reasoning"`
	Votes          map[string]string `json:"votes"`
	TradeDetails   *OrderResult      `json:"trade_details,omitempty"`
}
