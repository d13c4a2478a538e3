package grid

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betting-risk-lab/internal/domain"
)

func TestAxisKey(t *testing.T) {
	tests := map[float64]string{
		0.5:   "0.50",
		1:     "1.00",
		0.55:  "0.55",
		1.005: "1.01",
		2.345: "2.35",
		10:    "10.00",
	}
	for v, want := range tests {
		assert.Equal(t, want, AxisKey(v), "AxisKey(%v)", v)
	}
}

func TestSortEntries_RuinBeforeCalmar(t *testing.T) {
	entries := []Entry{
		{StrategyType: "a", ProbabilityOfRuin: 0.20, CalmarRatioPEMDD: 50},
		{StrategyType: "b", ProbabilityOfRuin: 0.01, CalmarRatioPEMDD: -1},
		{StrategyType: "c", ProbabilityOfRuin: 0.0105, CalmarRatioPEMDD: 3},
		{StrategyType: "d", ProbabilityOfRuin: 0.05, CalmarRatioPEMDD: domain.Ratio(math.Inf(1))},
	}
	SortEntries(entries)

	got := make([]domain.StrategyType, len(entries))
	for i, e := range entries {
		got[i] = e.StrategyType
	}
	// b and c tie on ruin, so the higher Calmar (c) leads.
	assert.Equal(t, []domain.StrategyType{"c", "b", "d", "a"}, got)
}

func TestSortEntries_InfinityOrdering(t *testing.T) {
	entries := []Entry{
		{StrategyType: "neg", CalmarRatioPEMDD: domain.Ratio(math.Inf(-1))},
		{StrategyType: "fin", CalmarRatioPEMDD: 1e9},
		{StrategyType: "pos", CalmarRatioPEMDD: domain.Ratio(math.Inf(1))},
	}
	SortEntries(entries)

	assert.Equal(t, domain.StrategyType("pos"), entries[0].StrategyType)
	assert.Equal(t, domain.StrategyType("fin"), entries[1].StrategyType)
	assert.Equal(t, domain.StrategyType("neg"), entries[2].StrategyType)
}

func TestSortEntries_ThresholdProperty(t *testing.T) {
	// A chain of near-ties: every adjacent pair is within the threshold, but the ends are not.
	entries := []Entry{
		{StrategyType: "c", ProbabilityOfRuin: 0.0016, CalmarRatioPEMDD: 10},
		{StrategyType: "b", ProbabilityOfRuin: 0.0008, CalmarRatioPEMDD: 5},
		{StrategyType: "a", ProbabilityOfRuin: 0.0000, CalmarRatioPEMDD: 1},
		{StrategyType: "e", ProbabilityOfRuin: 0.0030, CalmarRatioPEMDD: 100},
		{StrategyType: "d", ProbabilityOfRuin: 0.0024, CalmarRatioPEMDD: 0},
	}
	SortEntries(entries)

	for i := range entries {
		for j := range entries {
			if entries[i].ProbabilityOfRuin+RuinTieThreshold < entries[j].ProbabilityOfRuin {
				assert.Less(t, i, j, "%s (ruin %v) must precede %s (ruin %v)",
					entries[i].StrategyType, entries[i].ProbabilityOfRuin,
					entries[j].StrategyType, entries[j].ProbabilityOfRuin)
			}
		}
	}
}

func TestBuildResult_Shape(t *testing.T) {
	g := &domain.Grid{
		Cells: []domain.GridCell{
			{
				Key:   domain.CellKey{WinRate: 0.5, RiskRatio: 1, Strategy: domain.StrategyMartingale},
				Stats: domain.AggregateStatistics{RuinPct: 30, CalmarRatio: -0.5, ExpectedProfit: -120, MaxDrawdownMean: 60},
				Note:  domain.ClassVeryHighRisk,
			},
			{
				Key:   domain.CellKey{WinRate: 0.5, RiskRatio: 1, Strategy: domain.StrategyRaw},
				Stats: domain.AggregateStatistics{RuinPct: 0.5, CalmarRatio: domain.Ratio(math.Inf(1)), ExpectedProfit: 2, MaxDrawdownMean: 0},
				Note:  domain.ClassOptimal,
			},
			{
				Key:   domain.CellKey{WinRate: 0.55, RiskRatio: 2, Strategy: domain.StrategyRaw},
				Stats: domain.AggregateStatistics{RuinPct: 0, CalmarRatio: 4},
				Note:  domain.ClassOptimal,
			},
		},
	}

	res := BuildResult(g)
	require.Len(t, res, 2)

	cell := res["0.50"]["1.00"]
	require.Len(t, cell, 2)
	assert.Equal(t, domain.StrategyRaw, cell[0].StrategyType)
	assert.InDelta(t, 0.005, cell[0].ProbabilityOfRuin, 1e-12)
	assert.InDelta(t, 0.30, cell[1].ProbabilityOfRuin, 1e-12)
	assert.Equal(t, 60.0, cell[1].MaxDrawdown)
	require.Len(t, res["0.55"]["2.00"], 1)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"calmar_ratio_pemdd":"∞"`)
	assert.Contains(t, string(b), `"note":"Very High Risk"`)
}

func TestBuildResult_Nil(t *testing.T) {
	assert.Empty(t, BuildResult(nil))
}
