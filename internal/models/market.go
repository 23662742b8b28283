package models

import "time"

// Timeframe is an analysis resolution code, MT-style.
type Timeframe string

const (
	TFM1  Timeframe = "M1"
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
	TFM30 Timeframe = "M30"
	TFH1  Timeframe = "H1"
	TFH4  Timeframe = "H4"
	TFD1  Timeframe = "D1"
	TFW1  Timeframe = "W1"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TFM1:  time.Minute,
	TFM5:  5 * time.Minute,
	TFM15: 15 * time.Minute,
	TFM30: 30 * time.Minute,
	TFH1:  time.Hour,
	TFH4:  4 * time.Hour,
	TFD1:  24 * time.Hour,
	TFW1:  7 * 24 * time.Hour,
}

// Valid reports whether tf is one of the known codes.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// Duration returns the bar interval, defaulting to one hour for unknown codes.
func (tf Timeframe) Duration() time.Duration {
	if d, ok := timeframeDurations[tf]; ok {
		return d
	}
	return time.Hour
}

// Instrument is a tradable symbol plus its analysis timeframe, loaded once
// from configuration.
type Instrument struct {
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Timeframe Timeframe `yaml:"timeframe" json:"timeframe"`
	Enabled   bool      `yaml:"enabled" json:"enabled"`
}

// Bar is one OHLCV row.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// AccountState is a snapshot of the trading account.
type AccountState struct {
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
}

// Position is an open position as reported by the execution backend.
type Position struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"open_price"`
	Profit     float64 `json:"profit"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
}

// ClosedDeal is a closed trade used for the daily-loss window.
type ClosedDeal struct {
	Symbol    string    `json:"symbol"`
	Profit    float64   `json:"profit"`
	CloseTime time.Time `json:"close_time"`
}

// Quote is the current bid/ask for a symbol.
type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// NewsArticle is a normalized article from the news source.
type NewsArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// CalendarEvent is one economic-calendar entry.
type CalendarEvent struct {
	Title    string    `json:"title"`
	Currency string    `json:"currency"`
	Impact   string    `json:"impact"`
	Time     time.Time `json:"time"`
}
