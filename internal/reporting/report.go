package reporting

import (
	"time"

	"betting-risk-lab/internal/domain"
)

// Report is the rendered view of one generated grid.
type Report struct {
	// Metadata
	GeneratedAt        time.Time
	Fingerprint        string
	GridGeneratedAt    time.Time
	SimulationsPerCell int
	Rounds             int
	InitialBalance     float64
	CellCount          int

	// Scenarios ordered by win rate, then risk ratio, in request order.
	Scenarios []ScenarioSection

	// Number of cells per classification
	Summary map[domain.Classification]int
}

// ScenarioSection groups the strategy rows of one (winRate, riskRatio) pair.
type ScenarioSection struct {
	WinRate   float64
	RiskRatio float64
	Kelly     float64 // optimal fraction of bankroll for a fixed-odds bet, may be negative

	// Rows sorted by ruin probability, then Calmar ratio.
	Rows []StrategyRow
}

// StrategyRow represents one row in a scenario table.
type StrategyRow struct {
	WinRate        float64
	RiskRatio      float64
	Strategy       domain.StrategyType
	Note           domain.Classification
	RuinPct        float64
	ProfitablePct  float64
	EarlyStopPct   float64
	ExpectedProfit float64
	MeanROI        float64
	MedianROI      float64
	MaxDrawdownPct float64 // mean of per-trial max drawdown %
	Sharpe         domain.Ratio
	Calmar         domain.Ratio
	Sortino        domain.Ratio
	MeanRounds     float64
}

// ClassificationOrder lists labels from safest to riskiest.
var ClassificationOrder = []domain.Classification{
	domain.ClassOptimal,
	domain.ClassGoodCompromise,
	domain.ClassNotableRisk,
	domain.ClassVeryHighRisk,
}
