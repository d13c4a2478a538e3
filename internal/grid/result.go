package grid

import (
	"math"
	"sort"

	"betting-risk-lab/internal/domain"
)

// RuinTieThreshold is the ruin probability difference below which two entries
// are ordered by Calmar ratio instead.
const RuinTieThreshold = 0.001

// Entry is one strategy's summary inside a result cell.
type Entry struct {
	StrategyType      domain.StrategyType   `json:"strategy_type"`
	CalmarRatioPEMDD  domain.Ratio          `json:"calmar_ratio_pemdd"`  // number or "∞" / "-∞"
	ProbabilityOfRuin float64               `json:"probability_of_ruin"` // 0..1
	ExpectedProfit    float64               `json:"expected_profit"`
	MaxDrawdown       float64               `json:"max_drawdown"` // percent
	Note              domain.Classification `json:"note"`
}

// Result maps winRate -> riskRatio -> sorted entries. Keys have two decimals.
type Result map[string]map[string][]Entry

// AxisKey renders an axis value as a two-decimal key ("0.5" -> "0.50").
func AxisKey(v float64) string {
	return domain.AxisKey(v)
}

// BuildResult converts a grid into its nested export form.
func BuildResult(g *domain.Grid) Result {
	res := make(Result)
	if g == nil {
		return res
	}
	for _, c := range g.Cells {
		wk, rk := AxisKey(c.Key.WinRate), AxisKey(c.Key.RiskRatio)
		if res[wk] == nil {
			res[wk] = make(map[string][]Entry)
		}
		res[wk][rk] = append(res[wk][rk], Entry{
			StrategyType:      c.Key.Strategy,
			CalmarRatioPEMDD:  c.Stats.CalmarRatio,
			ProbabilityOfRuin: c.Stats.RuinPct / 100,
			ExpectedProfit:    c.Stats.ExpectedProfit,
			MaxDrawdown:       c.Stats.MaxDrawdownMean,
			Note:              c.Note,
		})
	}
	for _, byRisk := range res {
		for k := range byRisk {
			SortEntries(byRisk[k])
		}
	}
	return res
}

// SortEntries orders entries by ascending ruin probability, then by descending
// Calmar ratio among entries whose ruin probabilities are within RuinTieThreshold.
//
// Entries are sorted by ruin first and then split into clusters: a cluster holds
// every entry within RuinTieThreshold of its lowest member, so members of one
// cluster are mutually tied and each cluster is sorted by Calmar. An entry whose
// ruin is more than the threshold below another's always comes first.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ProbabilityOfRuin < entries[j].ProbabilityOfRuin
	})

	for lo := 0; lo < len(entries); {
		hi := lo + 1
		for hi < len(entries) && entries[hi].ProbabilityOfRuin <= entries[lo].ProbabilityOfRuin+RuinTieThreshold {
			hi++
		}
		cluster := entries[lo:hi]
		sort.SliceStable(cluster, func(i, j int) bool {
			return calmarValue(cluster[i].CalmarRatioPEMDD) > calmarValue(cluster[j].CalmarRatioPEMDD)
		})
		lo = hi
	}
}

// calmarValue orders ratios with +Inf above every finite value and -Inf below.
func calmarValue(r domain.Ratio) float64 {
	v := float64(r)
	if math.IsNaN(v) {
		return 0
	}
	return v
}
