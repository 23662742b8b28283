package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const sentimentSystemPrompt = `You are a news sentiment analyst for FX and metals trading.
You receive recent headlines touching one instrument.
Answer with a single JSON object: {"recommendation": "buy"|"sell"|"hold", "confidence": 0.0-1.0, "reasoning": "..."}.
Headlines alone rarely justify high confidence.`

var (
	bullishWords = []string{"rally", "surge", "gain", "rise", "jump", "bullish", "strong", "beat", "optimism", "hawkish"}
	bearishWords = []string{"fall", "drop", "decline", "slump", "plunge", "bearish", "weak", "miss", "fear", "dovish", "crash"}
)

// SentimentAgent votes from recent headlines. A high-impact calendar event
// near the candidate forces a cautious hold vote before any headline is read;
// the other analysts still vote and can outnumber it. With no provider the
// agent scores headlines by keyword polarity; with no news at all it abstains.
type SentimentAgent struct {
	base
	news     dataflows.NewsSource
	calendar dataflows.CalendarSource
	cfg      *config.Config
}

// NewSentimentAgent builds the analyst. The calendar source may be nil.
func NewSentimentAgent(news dataflows.NewsSource, calendar dataflows.CalendarSource, cfg *config.Config, provider llm.Provider, auditor *audit.Logger, ring *memory.Ring, store *memory.Store, log zerolog.Logger) *SentimentAgent {
	return &SentimentAgent{
		base:     newBase(NameSentiment, provider, auditor, ring, store, log),
		news:     news,
		calendar: calendar,
		cfg:      cfg,
	}
}

// Analyze produces the sentiment vote for one candidate.
func (a *SentimentAgent) Analyze(ctx context.Context, runID string, c *models.Candidate) *models.AnalysisResult {
	if result := a.calendarPause(ctx, c.Symbol); result != nil {
		return result
	}

	articles, err := a.news.RecentNews(ctx, c.Symbol, 10)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("news unavailable")
		return models.NewAnalysisResult(NameSentiment, models.RecHold, 0.5, "news source unavailable", nil)
	}
	if len(articles) == 0 {
		return models.NewAnalysisResult(NameSentiment, models.RecHold, 0.5, "no recent news", nil)
	}

	data := map[string]any{"articles": len(articles)}
	var sb strings.Builder
	for _, art := range articles {
		fmt.Fprintf(&sb, "- %s\n", art.Title)
	}
	user := fmt.Sprintf("Instrument: %s.\nHeadlines:\n%s\n%s", c.Symbol, sb.String(), a.recentContext(5))

	result := a.keywordFallback(articles, data)
	if v := a.askVerdict(ctx, runID, sentimentSystemPrompt, user); v != nil && v.Valid() {
		result = models.NewAnalysisResult(NameSentiment, v.Recommendation, v.Confidence, v.Reasoning, data)
	}

	a.remember(ctx, c.Symbol, fmt.Sprintf("%s %s from %d headlines", result.Recommendation, c.Symbol, len(articles)))
	return result
}

// calendarPause returns a forced hold vote when a high-impact event sits
// within the configured window around now for the symbol. A missing or
// failing calendar never blocks the analysis.
func (a *SentimentAgent) calendarPause(ctx context.Context, symbol string) *models.AnalysisResult {
	if a.calendar == nil || a.cfg == nil {
		return nil
	}
	events, err := a.calendar.UpcomingEvents(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("calendar unavailable, continuing without pause check")
		return nil
	}
	paused, hit := dataflows.InPauseWindow(events, symbol, time.Now().UTC(), a.cfg.CalendarWindow)
	if !paused {
		return nil
	}
	return models.NewAnalysisResult(NameSentiment, models.RecHold, 0.3,
		fmt.Sprintf("paused around high-impact event: %s (%s)", hit.Title, hit.Currency),
		map[string]any{"event": hit.Title, "currency": hit.Currency})
}

// keywordFallback scores headline polarity when the model is unavailable.
func (a *SentimentAgent) keywordFallback(articles []models.NewsArticle, data map[string]any) *models.AnalysisResult {
	var bull, bear int
	for _, art := range articles {
		text := strings.ToLower(art.Title + " " + art.Summary)
		for _, w := range bullishWords {
			if strings.Contains(text, w) {
				bull++
			}
		}
		for _, w := range bearishWords {
			if strings.Contains(text, w) {
				bear++
			}
		}
	}
	data["bullish_hits"] = bull
	data["bearish_hits"] = bear

	// Keyword counting is a weak signal; its confidence stays below what a
	// model verdict would carry.
	switch {
	case bull > bear:
		return models.NewAnalysisResult(NameSentiment, models.RecBuy, 0.45,
			fmt.Sprintf("headline keywords lean bullish (%d vs %d)", bull, bear), data)
	case bear > bull:
		return models.NewAnalysisResult(NameSentiment, models.RecSell, 0.45,
			fmt.Sprintf("headline keywords lean bearish (%d vs %d)", bear, bull), data)
	default:
		return models.NewAnalysisResult(NameSentiment, models.RecHold, 0.5, "headline sentiment balanced", data)
	}
}
