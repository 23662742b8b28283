package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// NewsClient fetches an RSS feed and filters items by symbol keywords. An
// unconfigured feed URL is not an error; the sentiment analyst treats an
// empty article list as no signal.
type NewsClient struct {
	client  *resty.Client
	feedURL string
	log     zerolog.Logger
}

// NewNewsClient builds the client for the configured feed.
func NewNewsClient(feedURL string, timeout time.Duration, log zerolog.Logger) *NewsClient {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; tradecouncil/1.0)")
	return &NewsClient{
		client:  client,
		feedURL: feedURL,
		log:     log.With().Str("component", "news").Logger(),
	}
}

// RecentNews fetches the feed and returns up to limit articles mentioning the
// symbol or its currency legs, newest first as the feed orders them.
func (n *NewsClient) RecentNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	if n.feedURL == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var body string
	err := WithRetry(ctx, DefaultRetryConfig(), func() error {
		resp, err := n.client.R().SetContext(ctx).Get(n.feedURL)
		if err != nil {
			return fmt.Errorf("fetch feed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("feed status %d", resp.StatusCode())
		}
		body = resp.String()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", models.ErrDataUnavailable, err)
	}

	keywords := symbolKeywords(symbol)
	var articles []models.NewsArticle
	doc.Find("item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		article := models.NewsArticle{
			Title:   strings.TrimSpace(s.Find("title").First().Text()),
			Summary: strings.TrimSpace(s.Find("description").First().Text()),
			URL:     strings.TrimSpace(s.Find("link").First().Text()),
			Source:  n.feedURL,
		}
		if article.Title == "" {
			return true
		}
		if ts := strings.TrimSpace(s.Find("pubdate").First().Text()); ts != "" {
			if t, err := time.Parse(time.RFC1123Z, ts); err == nil {
				article.PublishedAt = t
			} else if t, err := time.Parse(time.RFC1123, ts); err == nil {
				article.PublishedAt = t
			}
		}
		if !matchesKeywords(article.Title+" "+article.Summary, keywords) {
			return true
		}
		articles = append(articles, article)
		return len(articles) < limit
	})

	n.log.Debug().Str("symbol", symbol).Int("articles", len(articles)).Msg("news fetched")
	return articles, nil
}

// symbolKeywords expands a pair like EURUSD into searchable terms: the pair
// itself plus each three-letter leg.
func symbolKeywords(symbol string) []string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	kw := []string{symbol}
	if len(symbol) == 6 {
		kw = append(kw, symbol[:3], symbol[3:])
	}
	return kw
}

func matchesKeywords(text string, keywords []string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
