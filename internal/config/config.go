package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Config is the full policy for one process, built once at startup and passed
// by reference into the orchestrator and every agent constructor. Nothing
// reads the environment after Load returns.
type Config struct {
	// Reasoning provider (OpenAI-compatible endpoint).
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float32
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Market data / execution bridge.
	BridgeBaseURL string
	BridgeAPIKey  string
	BridgeTimeout time.Duration

	// News and economic calendar.
	NewsFeedURL     string
	CalendarFeedURL string
	CalendarWindow  time.Duration

	// Trading mode and sizing.
	PaperTrading bool
	DefaultLot   float64
	TestLot      float64 // optional override, 0 means unset

	// Portfolio manager policy.
	DefaultTimeframe models.Timeframe
	TradeOnTechAlone bool
	MinTechConf      float64

	// Research screening.
	ResearchMinScore  float64
	ResearchMinATRPct float64
	ResearchTopK      int
	ResearchMinRows   int
	ResearchWantRows  int
	ForceSymbols      []string
	ForceTimeframe    models.Timeframe
	DebugResearch     bool

	// Risk gate.
	MaxDailyLoss     float64
	MaxDrawdown      float64
	MaxOpenPositions int
	MaxPerInstrument int
	RiskPerTrade     float64

	// Paths and surfaces.
	DataDir         string
	LogDir          string
	DatabasePath    string
	InstrumentsPath string
	DashboardAddr   string
	DashboardToken  string
	LogLevel        string

	Instruments []models.Instrument
}

// Load builds the immutable configuration from the process environment and
// the instruments file. Any configuration error here is fatal by contract:
// the process refuses to start rather than run with undefined policy.
func Load() (*Config, error) {
	cfg := &Config{
		LLMBaseURL:     envStr("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:      envStr("LLM_API_KEY", envStr("OPENROUTER_API_KEY", "")),
		LLMModel:       envStr("LLM_MODEL", "deepseek/deepseek-chat"),
		LLMTemperature: float32(envFloat("LLM_TEMPERATURE", 0.3)),
		LLMMaxTokens:   envInt("LLM_MAX_TOKENS", 2000),
		LLMTimeout:     envDuration("LLM_TIMEOUT", 30*time.Second),

		BridgeBaseURL: envStr("BRIDGE_BASE_URL", "http://127.0.0.1:8787"),
		BridgeAPIKey:  envStr("BRIDGE_API_KEY", ""),
		BridgeTimeout: envDuration("BRIDGE_TIMEOUT", 15*time.Second),

		NewsFeedURL:     envStr("NEWS_FEED_URL", ""),
		CalendarFeedURL: envStr("CALENDAR_FEED_URL", ""),
		CalendarWindow:  envDuration("CALENDAR_PAUSE_WINDOW", 15*time.Minute),

		PaperTrading: envBool("PAPER_TRADING", true),
		DefaultLot:   envFloat("DEFAULT_LOT", 0.01),
		TestLot:      envFloat("PM_TEST_LOT", 0),

		DefaultTimeframe: models.Timeframe(strings.ToUpper(envStr("DEFAULT_TIMEFRAME", "H1"))),
		TradeOnTechAlone: envBool("PM_TRADE_ON_TECH_ALONE", false),
		MinTechConf:      envFloat("PM_MIN_TECH_CONF", 0.65),

		ResearchMinScore:  envFloat("RESEARCH_MIN_SCORE", 0.0),
		ResearchMinATRPct: envFloat("RESEARCH_MIN_ATR_PCT", 0.00005),
		ResearchTopK:      envInt("RESEARCH_TOP_K_FALLBACK", 2),
		ResearchMinRows:   envInt("RESEARCH_MIN_ROWS", 200),
		ResearchWantRows:  envInt("RESEARCH_WANT_ROWS", 1500),
		DebugResearch:     envBool("DEBUG_RESEARCH", false),

		MaxDailyLoss:     envFloat("MAX_DAILY_LOSS", 0.05),
		MaxDrawdown:      envFloat("MAX_DRAWDOWN", 0.20),
		MaxOpenPositions: envInt("MAX_OPEN_POSITIONS", 10),
		MaxPerInstrument: envInt("MAX_POSITIONS_PER_INSTRUMENT", 1),
		RiskPerTrade:     envFloat("RISK_PER_TRADE", 0.01),

		DataDir:         envStr("DATA_DIR", "./data"),
		LogDir:          envStr("LOG_DIR", "./logs"),
		InstrumentsPath: envStr("INSTRUMENTS_PATH", "config/instruments.yaml"),
		DashboardAddr:   envStr("DASHBOARD_ADDR", ":8090"),
		DashboardToken:  envStr("DASHBOARD_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
	}
	cfg.DatabasePath = envStr("DATABASE_PATH", cfg.DataDir+"/tradecouncil.db")

	if force := envStr("RESEARCH_FORCE_SYMBOLS", ""); force != "" {
		for _, s := range strings.Split(force, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.ForceSymbols = append(cfg.ForceSymbols, s)
			}
		}
	}
	if tf := envStr("RESEARCH_FORCE_TF", ""); tf != "" {
		cfg.ForceTimeframe = models.Timeframe(strings.ToUpper(tf))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	instruments, err := LoadInstruments(cfg.InstrumentsPath, cfg.DefaultTimeframe)
	if err != nil {
		return nil, err
	}
	cfg.Instruments = instruments

	return cfg, nil
}

func (c *Config) validate() error {
	if !c.DefaultTimeframe.Valid() {
		return fmt.Errorf("invalid DEFAULT_TIMEFRAME %q", c.DefaultTimeframe)
	}
	if c.ForceTimeframe != "" && !c.ForceTimeframe.Valid() {
		return fmt.Errorf("invalid RESEARCH_FORCE_TF %q", c.ForceTimeframe)
	}
	if c.MinTechConf < 0 || c.MinTechConf > 1 {
		return fmt.Errorf("PM_MIN_TECH_CONF must be in [0,1], got %v", c.MinTechConf)
	}
	if c.MaxDailyLoss <= 0 || c.MaxDrawdown <= 0 {
		return fmt.Errorf("risk fractions must be positive")
	}
	if !c.PaperTrading && c.BridgeAPIKey == "" {
		return fmt.Errorf("live trading requires BRIDGE_API_KEY")
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// EnabledInstruments filters the configured universe down to enabled entries.
func (c *Config) EnabledInstruments() []models.Instrument {
	out := make([]models.Instrument, 0, len(c.Instruments))
	for _, in := range c.Instruments {
		if in.Enabled {
			out = append(out, in)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
