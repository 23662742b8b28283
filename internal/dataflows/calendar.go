package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// CalendarClient fetches the economic calendar feed. Like news, an
// unconfigured URL yields an empty calendar rather than an error.
type CalendarClient struct {
	client  *resty.Client
	feedURL string
	log     zerolog.Logger
}

// NewCalendarClient builds the client for the configured feed.
func NewCalendarClient(feedURL string, timeout time.Duration, log zerolog.Logger) *CalendarClient {
	client := resty.New()
	client.SetTimeout(timeout)
	return &CalendarClient{
		client:  client,
		feedURL: feedURL,
		log:     log.With().Str("component", "calendar").Logger(),
	}
}

type calendarFeedEvent struct {
	Title    string `json:"title"`
	Currency string `json:"currency"`
	Impact   string `json:"impact"`
	Time     string `json:"time"`
}

// UpcomingEvents fetches and parses the calendar feed.
func (c *CalendarClient) UpcomingEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	if c.feedURL == "" {
		return nil, nil
	}

	var raw []calendarFeedEvent
	err := WithRetry(ctx, DefaultRetryConfig(), func() error {
		resp, err := c.client.R().SetContext(ctx).Get(c.feedURL)
		if err != nil {
			return fmt.Errorf("fetch calendar: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("calendar status %d", resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), &raw); err != nil {
			return fmt.Errorf("parse calendar: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	events := make([]models.CalendarEvent, 0, len(raw))
	for _, e := range raw {
		t, err := time.Parse(time.RFC3339, e.Time)
		if err != nil {
			continue
		}
		events = append(events, models.CalendarEvent{
			Title:    e.Title,
			Currency: strings.ToUpper(e.Currency),
			Impact:   strings.ToLower(e.Impact),
			Time:     t,
		})
	}
	return events, nil
}

// InPauseWindow reports whether a high-impact event touching one of the
// symbol's currency legs falls within the window on either side of now.
// Trading pauses around such events.
func InPauseWindow(events []models.CalendarEvent, symbol string, now time.Time, window time.Duration) (bool, *models.CalendarEvent) {
	legs := symbolKeywords(symbol)
	for i := range events {
		e := &events[i]
		if e.Impact != "high" {
			continue
		}
		if !containsString(legs, e.Currency) {
			continue
		}
		diff := e.Time.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true, e
		}
	}
	return false, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
