package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RenderCSV renders strategy rows as CSV string.
// Infinite ratios are written as "inf" and "-inf".
func RenderCSV(rows []StrategyRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("win_rate,risk_ratio,strategy,note,ruin_pct,profitable_pct,early_stop_pct,")
	sb.WriteString("expected_profit,mean_roi,median_roi,max_drawdown_pct,")
	sb.WriteString("sharpe_ratio,calmar_ratio,sortino_ratio,mean_rounds\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%.2f,%.2f,%s,%s,%.4f,%.4f,%.4f,%.6f,%.6f,%.6f,%.6f,%s,%s,%s,%.2f\n",
			r.WinRate,
			r.RiskRatio,
			r.Strategy,
			r.Note,
			r.RuinPct,
			r.ProfitablePct,
			r.EarlyStopPct,
			r.ExpectedProfit,
			r.MeanROI,
			r.MedianROI,
			r.MaxDrawdownPct,
			csvRatio(float64(r.Sharpe)),
			csvRatio(float64(r.Calmar)),
			csvRatio(float64(r.Sortino)),
			r.MeanRounds,
		))
	}

	return sb.String()
}

func csvRatio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
