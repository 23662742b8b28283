package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/llm"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const (
	minAccountBalance    = 100.0
	minEquityRatio       = 0.5
	minMarginLevel       = 200.0
	correlationThreshold = 0.7
	correlationMinBars   = 30
)

const riskSystemPrompt = `You are the risk manager for a leveraged FX and metals account.
You receive a proposed trade and the account risk checks, all of which passed.
Answer with a single JSON object: {"recommendation": "approve"|"reject", "confidence": 0.0-1.0, "reasoning": "..."}.
Reject only for a concrete risk the checks do not capture.`

// RiskAgent is the hard gate in front of execution. The deterministic checks
// are authoritative: a failed check is a veto no model answer can lift. The
// model can only add a veto on top of passing checks.
type RiskAgent struct {
	base
	market dataflows.MarketData
	cfg    *config.Config
}

// NewRiskAgent builds the gate.
func NewRiskAgent(market dataflows.MarketData, cfg *config.Config, provider llm.Provider, auditor *audit.Logger, ring *memory.Ring, store *memory.Store, log zerolog.Logger) *RiskAgent {
	return &RiskAgent{
		base:   newBase(NameRisk, provider, auditor, ring, store, log),
		market: market,
		cfg:    cfg,
	}
}

// Evaluate approves or rejects a proposed trade.
func (a *RiskAgent) Evaluate(ctx context.Context, runID string, proposed *models.ProposedTrade) *models.AnalysisResult {
	account, err := a.market.Account(ctx)
	if err != nil {
		return models.NewAnalysisResult(NameRisk, models.RecReject, 1,
			"account state unavailable", nil)
	}
	positions, err := a.market.Positions(ctx)
	if err != nil {
		return models.NewAnalysisResult(NameRisk, models.RecReject, 1,
			"open positions unavailable", nil)
	}

	checks := a.accountChecks(ctx, account)
	limits := a.positionLimits(positions, proposed.Instrument)
	flags := a.correlationFlags(ctx, positions, proposed.Instrument)

	data := map[string]any{
		"checks":        checks,
		"limits":        limits,
		"correlations":  flags,
		"balance":       account.Balance,
		"equity":        account.Equity,
		"position_size": PositionSize(account.Balance, a.cfg.RiskPerTrade, 0, 0, a.cfg.DefaultLot),
	}

	if reason := failedCheckReason(checks, limits); reason != "" {
		a.remember(ctx, proposed.Instrument, "reject: "+reason)
		return models.NewAnalysisResult(NameRisk, models.RecReject, 1, reason, data)
	}

	// Checks passed; the model may still veto.
	result := models.NewAnalysisResult(NameRisk, models.RecApprove, 0.8, "all risk checks passed", data)
	if v := a.assess(ctx, runID, proposed, checks, limits, flags); v != nil && v.Recommendation == models.RecReject {
		result = models.NewAnalysisResult(NameRisk, models.RecReject, v.Confidence, v.Reasoning, data)
	}

	a.remember(ctx, proposed.Instrument, fmt.Sprintf("%s %s %s", result.Recommendation, proposed.Direction, proposed.Instrument))
	return result
}

func (a *RiskAgent) accountChecks(ctx context.Context, account *models.AccountState) models.RiskCheckSet {
	checks := models.RiskCheckSet{
		SufficientBalance: account.Balance > minAccountBalance,
		EquityCheck:       account.Equity >= minEquityRatio*account.Balance,
		MarginLevelOK:     account.MarginLevel > minMarginLevel || account.MarginLevel == 0,
		MaxDailyLoss:      account.Balance * a.cfg.MaxDailyLoss,
	}

	checks.DailyLoss = a.dailyLoss(ctx)
	checks.DailyLossOK = checks.DailyLoss < checks.MaxDailyLoss

	checks.Drawdown, checks.DrawdownOK = a.drawdown(ctx, account)
	return checks
}

// dailyLoss sums closed-deal losses over the trailing 24 hours. An
// unavailable deal history counts as zero loss; the daily-loss gate is
// advisory when the backend cannot serve it.
func (a *RiskAgent) dailyLoss(ctx context.Context) float64 {
	since := time.Now().UTC().Add(-24 * time.Hour)
	deals, err := a.market.ClosedDeals(ctx, since)
	if err != nil {
		a.log.Warn().Err(err).Msg("closed deals unavailable, daily loss unknown")
		return 0
	}
	var pnl float64
	for _, d := range deals {
		pnl += d.Profit
	}
	if pnl < 0 {
		return -pnl
	}
	return 0
}

// drawdown compares equity against the stored peak balance. No recorded peak
// passes; the peak is raised as a side effect so the gate tightens over time.
func (a *RiskAgent) drawdown(ctx context.Context, account *models.AccountState) (float64, bool) {
	if a.store == nil {
		return 0, true
	}
	if err := a.store.UpdatePeakBalance(ctx, account.Balance); err != nil {
		a.log.Warn().Err(err).Msg("peak balance update failed")
	}
	peak, ok, err := a.store.PeakBalance(ctx)
	if err != nil || !ok || peak <= 0 {
		return 0, true
	}
	dd := (peak - account.Equity) / peak
	if dd < 0 {
		dd = 0
	}
	return dd, dd < a.cfg.MaxDrawdown
}

func (a *RiskAgent) positionLimits(positions []models.Position, symbol string) models.PositionLimitCheck {
	limits := models.PositionLimitCheck{
		TotalPositions:   len(positions),
		MaxPositions:     a.cfg.MaxOpenPositions,
		MaxPerInstrument: a.cfg.MaxPerInstrument,
	}
	for _, p := range positions {
		if strings.EqualFold(p.Symbol, symbol) {
			limits.InstrumentPositions++
		}
	}
	limits.PositionsOK = limits.TotalPositions < limits.MaxPositions
	limits.InstrumentOK = limits.InstrumentPositions < limits.MaxPerInstrument
	return limits
}

// correlationFlags marks open positions whose recent closes move with the
// proposed instrument. Informational in the default policy: flagged, logged,
// never a veto.
func (a *RiskAgent) correlationFlags(ctx context.Context, positions []models.Position, symbol string) []models.CorrelationFlag {
	proposedCloses := a.closes(ctx, symbol)
	if len(proposedCloses) < correlationMinBars {
		return nil
	}

	var flags []models.CorrelationFlag
	seen := map[string]bool{strings.ToUpper(symbol): true}
	for _, p := range positions {
		key := strings.ToUpper(p.Symbol)
		if seen[key] {
			continue
		}
		seen[key] = true

		otherCloses := a.closes(ctx, p.Symbol)
		n := minInt(len(proposedCloses), len(otherCloses))
		if n < correlationMinBars {
			continue
		}
		rho := stat.Correlation(proposedCloses[len(proposedCloses)-n:], otherCloses[len(otherCloses)-n:], nil)
		if rho >= correlationThreshold || rho <= -correlationThreshold {
			a.log.Info().Str("a", symbol).Str("b", p.Symbol).Float64("rho", rho).Msg("correlated exposure")
			flags = append(flags, models.CorrelationFlag{SymbolA: symbol, SymbolB: p.Symbol, Correlation: rho})
		}
	}
	return flags
}

func (a *RiskAgent) closes(ctx context.Context, symbol string) []float64 {
	bars, err := a.market.Bars(ctx, symbol, models.TFH1, 100)
	if err != nil {
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func (a *RiskAgent) assess(ctx context.Context, runID string, proposed *models.ProposedTrade, checks models.RiskCheckSet, limits models.PositionLimitCheck, flags []models.CorrelationFlag) *Verdict {
	payload, _ := json.Marshal(map[string]any{
		"proposed":     proposed,
		"checks":       checks,
		"limits":       limits,
		"correlations": flags,
	})
	v := a.askVerdict(ctx, runID, riskSystemPrompt, string(payload))
	if v == nil {
		return nil
	}
	if v.Recommendation != models.RecApprove && v.Recommendation != models.RecReject {
		return nil
	}
	return v
}

func failedCheckReason(checks models.RiskCheckSet, limits models.PositionLimitCheck) string {
	switch {
	case !checks.SufficientBalance:
		return "balance below minimum"
	case !checks.EquityCheck:
		return "equity below half of balance"
	case !checks.MarginLevelOK:
		return "margin level too low"
	case !checks.DailyLossOK:
		return fmt.Sprintf("daily loss %.2f at limit %.2f", checks.DailyLoss, checks.MaxDailyLoss)
	case !checks.DrawdownOK:
		return fmt.Sprintf("drawdown %.1f%% over limit", checks.Drawdown*100)
	case !limits.PositionsOK:
		return fmt.Sprintf("open positions at cap (%d)", limits.MaxPositions)
	case !limits.InstrumentOK:
		return "instrument position cap reached"
	}
	return ""
}

// PositionSize applies fixed-fractional sizing: the risked fraction of the
// balance divided by the stop distance value, rounded to two decimals.
// Proposals without a stop distance fall back to the default lot.
func PositionSize(balance, riskFraction, stopPips, pipValue, fallback float64) float64 {
	if balance <= 0 || riskFraction <= 0 || stopPips <= 0 || pipValue <= 0 {
		return fallback
	}
	size := balance * riskFraction / (stopPips * pipValue)
	return math.Round(size*100) / 100
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
