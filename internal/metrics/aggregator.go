// Package metrics reduces trial outcomes into aggregate statistics.
package metrics

import (
	"math"

	"betting-risk-lab/internal/domain"
)

// Classification thresholds, in percent of trials ruined.
const (
	OptimalRuinPct        = 1.0
	GoodCompromiseRuinPct = 5.0
)

// Aggregate reduces outcomes into AggregateStatistics.
// It is a pure function: the input is not modified and repeated calls return equal results.
func Aggregate(outcomes []domain.TrialOutcome, initialBalance float64) domain.AggregateStatistics {
	n := len(outcomes)
	stats := domain.AggregateStatistics{
		Trials:         n,
		InitialBalance: initialBalance,
	}
	if n == 0 {
		return stats
	}

	finals := make([]float64, n)
	rois := make([]float64, n)
	ddPcts := make([]float64, n)
	ddAbs := make([]float64, n)
	rounds := make([]float64, n)
	bets := make([]float64, n)

	profitable, ruined, early := 0, 0, 0
	stats.MinRounds = outcomes[0].RoundsPlayed
	stats.MaxRounds = outcomes[0].RoundsPlayed

	for i, o := range outcomes {
		finals[i] = o.FinalBalance
		rois[i] = o.ROI
		ddPcts[i] = o.MaxDrawdownPct
		ddAbs[i] = o.MaxDrawdown
		rounds[i] = float64(o.RoundsPlayed)
		bets[i] = o.AvgBetSize

		if o.Profitable() {
			profitable++
		}
		if o.Ruined {
			ruined++
		} else if o.StopReason != "" && o.StopReason != domain.StopCompleted {
			early++
		}
		stats.MinRounds = min(stats.MinRounds, o.RoundsPlayed)
		stats.MaxRounds = max(stats.MaxRounds, o.RoundsPlayed)
	}

	// Final balance distribution
	sortedFinals := sortedCopy(finals)
	stats.Mean = computeMean(finals)
	stats.Median = Percentile(sortedFinals, 50)
	stats.Percentile5 = Percentile(sortedFinals, 5)
	stats.Percentile25 = Percentile(sortedFinals, 25)
	stats.Percentile75 = Percentile(sortedFinals, 75)
	stats.Percentile95 = Percentile(sortedFinals, 95)

	// Return
	stats.MeanROI = computeMean(rois)
	stats.MedianROI = Percentile(sortedCopy(rois), 50)
	stats.Volatility = computeStddev(rois, stats.MeanROI)

	// Drawdown
	stats.MaxDrawdownMean = computeMean(ddPcts)
	stats.MaxDrawdownMedian = Percentile(sortedCopy(ddPcts), 50)
	stats.MaxDrawdownAbs = computeMean(ddAbs)

	// Risk-adjusted
	stats.SharpeRatio = domain.Ratio(safeRatio(stats.MeanROI, stats.Volatility))
	stats.CalmarRatio = domain.Ratio(safeRatio(stats.MeanROI, stats.MaxDrawdownMean))
	stats.SortinoRatio = domain.Ratio(computeSortino(rois, stats.MeanROI))

	stats.ProfitablePct = pct(profitable, n)
	stats.RuinPct = pct(ruined, n)
	stats.EarlyStopPct = pct(early, n)
	stats.ExpectedProfit = stats.Mean - initialBalance

	stats.MeanRounds = computeMean(rounds)
	stats.MeanBet = computeMean(bets)

	return stats
}

// computeSortino divides mean ROI by the downside deviation of negative ROIs.
// With no negative trial it is +Inf for a positive mean ROI, otherwise 0.
func computeSortino(rois []float64, meanROI float64) float64 {
	dd, ok := computeDownsideDeviation(rois)
	if !ok {
		if meanROI > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return safeRatio(meanROI, dd)
}

// Classify labels a cell by ruin probability and profit sign.
//
//	ruin <= 1%               Optimal
//	ruin <= 5%               Good Compromise
//	ruin > 5%, profit > 0    Notable Risk
//	otherwise                Very High Risk
func Classify(stats domain.AggregateStatistics) domain.Classification {
	switch {
	case stats.RuinPct <= OptimalRuinPct:
		return domain.ClassOptimal
	case stats.RuinPct <= GoodCompromiseRuinPct:
		return domain.ClassGoodCompromise
	case stats.ExpectedProfit > 0:
		return domain.ClassNotableRisk
	default:
		return domain.ClassVeryHighRisk
	}
}

// KellyFraction returns the optimal fraction of capital to bet for win
// probability p and payout ratio b: p - (1-p)/b. Negative means no edge.
// Returns 0 when b <= 0.
func KellyFraction(p, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return p - (1-p)/b
}
