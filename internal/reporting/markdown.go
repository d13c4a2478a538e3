package reporting

import (
	"fmt"
	"strings"
	"time"

	"betting-risk-lab/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Risk Grid\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Fingerprint != "" {
		sb.WriteString(fmt.Sprintf("Fingerprint: `%s`\n\n", r.Fingerprint))
	}

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Cells | %d |\n", r.CellCount))
	sb.WriteString(fmt.Sprintf("| Simulations per cell | %d |\n", r.SimulationsPerCell))
	sb.WriteString(fmt.Sprintf("| Rounds | %d |\n", r.Rounds))
	sb.WriteString(fmt.Sprintf("| Initial balance | %.2f |\n", r.InitialBalance))
	if !r.GridGeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("| Grid generated | %s |\n", r.GridGeneratedAt.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Classification summary
	sb.WriteString("## Classification Summary\n\n")
	sb.WriteString("| Classification | Cells |\n")
	sb.WriteString("|----------------|-------|\n")
	for _, c := range ClassificationOrder {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", c, r.Summary[c]))
	}
	sb.WriteString("\n")

	// Scenarios
	sb.WriteString("## Scenarios\n\n")
	if len(r.Scenarios) == 0 {
		sb.WriteString("No scenarios available.\n\n")
	}
	for _, s := range r.Scenarios {
		sb.WriteString(fmt.Sprintf("### Win rate %.2f, risk ratio %.2f\n\n", s.WinRate, s.RiskRatio))
		sb.WriteString(fmt.Sprintf("Kelly fraction: %.4f", s.Kelly))
		if s.Kelly <= 0 {
			sb.WriteString(" (no positive edge)")
		}
		sb.WriteString("\n\n")

		sb.WriteString("| Strategy | Note | Ruin% | Profitable% | Expected Profit | Mean ROI% | MaxDD% | Sharpe | Calmar | Sortino |\n")
		sb.WriteString("|----------|------|-------|-------------|-----------------|-----------|--------|--------|--------|---------|\n")
		for _, row := range s.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %.2f | %.2f | %s | %s | %s |\n",
				row.Strategy, row.Note, row.RuinPct, row.ProfitablePct, row.ExpectedProfit,
				row.MeanROI, row.MaxDrawdownPct, row.Sharpe, row.Calmar, row.Sortino))
		}
		sb.WriteString("\n")
	}

	// Legend
	sb.WriteString("## Legend\n\n")
	sb.WriteString(fmt.Sprintf("- **Optimal**: ruin probability at most %.0f%%.\n", metrics.OptimalRuinPct))
	sb.WriteString(fmt.Sprintf("- **Good Compromise**: ruin probability at most %.0f%%.\n", metrics.GoodCompromiseRuinPct))
	sb.WriteString("- **Notable Risk**: higher ruin probability with positive expected profit.\n")
	sb.WriteString("- **Very High Risk**: higher ruin probability without positive expected profit.\n")
	sb.WriteString("- **Kelly fraction**: p - (1 - p) / b for win rate p and risk ratio b.\n")

	return sb.String()
}
