package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tradecouncil/tradecouncil/internal/backtest"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(72)

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))
)

// DisplayBanner prints the startup header.
func DisplayBanner() {
	fmt.Println(titleStyle.Render("TradeCouncil: multi-agent trading pipeline"))
}

func recStyle(rec string) lipgloss.Style {
	switch rec {
	case models.RecBuy, models.RecExecuted, models.RecExecutedPaper:
		return buyStyle
	case models.RecSell, models.RecFailed:
		return sellStyle
	default:
		return holdStyle
	}
}

// DisplayDecision renders the outcome of one cycle as a bordered panel.
func DisplayDecision(state *models.CycleState) {
	if state == nil || state.Decision == nil {
		fmt.Println(dimStyle.Render("no decision produced"))
		return
	}
	d := state.Decision

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n\n", state.RunID)
	if d.Symbol != "" {
		fmt.Fprintf(&b, "Symbol:      %s (%s)\n", d.Symbol, d.Timeframe)
	}
	fmt.Fprintf(&b, "Decision:    %s\n", recStyle(d.Recommendation).Render(strings.ToUpper(d.Recommendation)))
	fmt.Fprintf(&b, "Confidence:  %.2f\n", d.Confidence)
	fmt.Fprintf(&b, "Reasoning:   %s\n", d.Reasoning)

	if len(d.Votes) > 0 {
		b.WriteString("\nVotes:\n")
		agents := make([]string, 0, len(d.Votes))
		for agent := range d.Votes {
			agents = append(agents, agent)
		}
		sort.Strings(agents)
		for _, agent := range agents {
			vote := d.Votes[agent]
			fmt.Fprintf(&b, "  %-6s %s\n", agent, recStyle(vote).Render(vote))
		}
	}

	if o := d.TradeDetails; o != nil {
		b.WriteString("\nOrder:\n")
		fmt.Fprintf(&b, "  %s %s %s @ %s",
			o.Side, o.Volume.String(), o.Symbol, o.FillPrice.String())
		if o.Ticket != 0 {
			fmt.Fprintf(&b, "  ticket %d", o.Ticket)
		}
		if o.PaperTrade {
			b.WriteString(dimStyle.Render("  (paper)"))
		}
		b.WriteString("\n")
		if !o.OK {
			fmt.Fprintf(&b, "  %s\n", errorStyle.Render(o.Message))
		}
	}

	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// DisplayBacktest prints the one-line crossover replay summary.
func DisplayBacktest(report *backtest.Report) {
	wins := 0
	for _, tr := range report.Trades {
		if tr.Profit > 0 {
			wins++
		}
	}
	line := fmt.Sprintf("backtest %s %s: %d trades, %d wins, %d losses, pnl %s",
		report.Symbol, report.Timeframe,
		len(report.Trades), wins, len(report.Trades)-wins,
		report.NetProfit.StringFixed(5))
	fmt.Println(infoStyle.Render(line))
}

// DisplayError prints a styled error line.
func DisplayError(err error) {
	fmt.Println(errorStyle.Render("error: " + err.Error()))
}

// DisplayInfo prints a styled info line.
func DisplayInfo(msg string) {
	fmt.Println(infoStyle.Render(msg))
}
