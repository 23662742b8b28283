// Package llm wraps the OpenAI-compatible chat endpoint behind a one-method
// Provider interface so agents and tests never touch the transport directly.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Provider answers one system+user exchange with the raw completion text.
type Provider interface {
	Ask(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Client is the production Provider backed by an eino chat model.
type Client struct {
	chatModel *openai.ChatModel
	model     string
	timeout   time.Duration
	log       zerolog.Logger
}

// New builds the chat model from config. An empty API key is allowed; calls
// will fail with ErrProviderUnavailable and agents fall back to indicators.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Client, error) {
	maxTokens := cfg.LLMMaxTokens
	temperature := cfg.LLMTemperature
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return &Client{
		chatModel: chatModel,
		model:     cfg.LLMModel,
		timeout:   cfg.LLMTimeout,
		log:       log.With().Str("component", "llm").Logger(),
	}, nil
}

// Model reports the configured model identifier.
func (c *Client) Model() string { return c.model }

// Ask sends one system+user exchange and returns the completion content.
// Transport or provider failures map to ErrProviderUnavailable so callers can
// branch on the class without parsing messages.
func (c *Client) Ask(ctx context.Context, system, user string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := c.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		c.log.Warn().Err(err).Str("model", c.model).Msg("chat completion failed")
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	c.log.Debug().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(msg.Content)).
		Msg("chat completion")
	return msg.Content, nil
}
