// Package cli wires the process together: configuration, logging, data
// sources, the agent council and the runner, exposed as cobra commands.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/agents"
	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/internal/portfolio"
	"github.com/tradecouncil/tradecouncil/internal/runner"
)

const feedTimeout = 10 * time.Second

// app holds everything a command needs after wiring.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	auditor *audit.Logger
	store   *memory.Store
	manager *portfolio.Manager
	runner  *runner.Runner
}

// newLogger builds the process logger from the configured level. Commands
// write human output through the UI helpers; zerolog carries diagnostics.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// buildApp assembles the full pipeline. With sim=true the market source and
// broker are the deterministic simulator and the paper broker regardless of
// the configured trading mode.
func buildApp(ctx context.Context, cfg *config.Config, sim bool) (*app, error) {
	log := newLogger(cfg.LogLevel)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	auditor, err := audit.New(cfg.LogDir, log)
	if err != nil {
		return nil, err
	}

	store, err := memory.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	ring := memory.NewRing(memory.DefaultShortTermCap)

	// A failed provider init is not fatal; agents fall back to indicators
	// and keyword heuristics.
	var provider llm.Provider
	if client, err := llm.New(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("reasoning provider unavailable, using fallbacks")
	} else {
		provider = client
	}

	var market dataflows.MarketData
	var broker dataflows.Execution
	if sim {
		simSource := dataflows.NewSimSource()
		market = simSource
		broker = dataflows.NewPaperBroker(simSource, log)
	} else {
		bridge := dataflows.NewBridgeClient(cfg.BridgeBaseURL, cfg.BridgeAPIKey, cfg.BridgeTimeout, log)
		market = bridge
		if cfg.PaperTrading {
			broker = dataflows.NewPaperBroker(bridge, log)
		} else {
			broker = bridge
		}
	}

	news := dataflows.NewNewsClient(cfg.NewsFeedURL, feedTimeout, log)
	funds := dataflows.NewFundamentalsClient(log)
	calendar := dataflows.NewCalendarClient(cfg.CalendarFeedURL, feedTimeout, log)

	council := portfolio.Council{
		Research:    agents.NewResearchAgent(market, cfg, ring, log),
		Technical:   agents.NewTechnicalAgent(market, provider, auditor, ring, store, log),
		Fundamental: agents.NewFundamentalAgent(funds, provider, auditor, ring, store, log),
		Sentiment:   agents.NewSentimentAgent(news, calendar, cfg, provider, auditor, ring, store, log),
		Risk:        agents.NewRiskAgent(market, cfg, provider, auditor, ring, store, log),
		Execution:   agents.NewExecutionAgent(broker, cfg, auditor, store, log),
	}

	manager, err := portfolio.NewManager(ctx, cfg, council, auditor, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		auditor: auditor,
		store:   store,
		manager: manager,
		runner:  runner.New(manager, auditor, log),
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// demoConfig is a self-contained configuration for sim runs: no env, no
// instruments file, paper trading against the deterministic walk.
func demoConfig() *config.Config {
	return &config.Config{
		LLMBaseURL:     "https://openrouter.ai/api/v1",
		LLMModel:       "deepseek/deepseek-chat",
		LLMTimeout:     30 * time.Second,
		CalendarWindow: 15 * time.Minute,

		PaperTrading: true,
		DefaultLot:   0.01,
		RiskPerTrade: 0.01,

		DefaultTimeframe: models.TFH1,
		MinTechConf:      0.65,

		ResearchMinATRPct: 0.00005,
		ResearchTopK:      2,
		ResearchMinRows:   200,
		ResearchWantRows:  1500,

		MaxDailyLoss:     0.05,
		MaxDrawdown:      0.20,
		MaxOpenPositions: 10,
		MaxPerInstrument: 1,

		DataDir:      "./data",
		LogDir:       "./logs",
		DatabasePath: "./data/tradecouncil-demo.db",
		LogLevel:     "info",

		Instruments: []models.Instrument{
			{Symbol: "EURUSD", Timeframe: models.TFH1, Enabled: true},
			{Symbol: "GBPUSD", Timeframe: models.TFH1, Enabled: true},
			{Symbol: "USDJPY", Timeframe: models.TFH1, Enabled: true},
		},
	}
}
