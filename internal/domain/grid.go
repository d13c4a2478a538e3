package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Classification is the risk label attached to a grid cell.
type Classification string

// Classification constants, ordered from safest to riskiest.
const (
	ClassOptimal        Classification = "Optimal"
	ClassGoodCompromise Classification = "Good Compromise"
	ClassNotableRisk    Classification = "Notable Risk"
	ClassVeryHighRisk   Classification = "Very High Risk"
)

// CellKey addresses one cell of a grid.
type CellKey struct {
	WinRate   float64      `json:"win_rate"`
	RiskRatio float64      `json:"risk_ratio"`
	Strategy  StrategyType `json:"strategy"`
}

// AxisKey renders an axis value with two decimals ("0.5" -> "0.50").
// Grid axes are keyed by this form, so two values sharing it address the same cell.
func AxisKey(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func (k CellKey) String() string {
	return fmt.Sprintf("winRate=%.2f riskRatio=%.2f strategy=%s", k.WinRate, k.RiskRatio, k.Strategy)
}

// GridCell holds the aggregated result for one cell.
type GridCell struct {
	Key   CellKey             `json:"key"`
	Stats AggregateStatistics `json:"stats"`
	Note  Classification      `json:"note"`
}

// Grid is a fully generated scenario grid. Axes keep the request order.
type Grid struct {
	Fingerprint        string         `json:"fingerprint"`
	WinRates           []float64      `json:"win_rates"`
	RiskRatios         []float64      `json:"risk_ratios"`
	Strategies         []StrategyType `json:"strategies"`
	SimulationsPerCell int            `json:"simulations_per_cell"`
	Rounds             int            `json:"rounds"`
	InitialBalance     float64        `json:"initial_balance"`
	GeneratedAt        time.Time      `json:"generated_at"`

	// Cells are ordered winRate-major, then riskRatio, then strategy.
	Cells []GridCell `json:"cells"`
}

// Cell looks up a cell by its coordinates.
func (g *Grid) Cell(winRate, riskRatio float64, strategy StrategyType) (GridCell, bool) {
	for _, c := range g.Cells {
		if c.Key.WinRate == winRate && c.Key.RiskRatio == riskRatio && c.Key.Strategy == strategy {
			return c, true
		}
	}
	return GridCell{}, false
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	out := *g
	out.WinRates = append([]float64(nil), g.WinRates...)
	out.RiskRatios = append([]float64(nil), g.RiskRatios...)
	out.Strategies = append([]StrategyType(nil), g.Strategies...)
	out.Cells = append([]GridCell(nil), g.Cells...)
	return &out
}

// GridRequest is the input of one grid generation.
type GridRequest struct {
	WinRates           []float64      `json:"win_rates" yaml:"win_rates"`
	RiskRatios         []float64      `json:"risk_ratios" yaml:"risk_ratios"`
	Strategies         []StrategyType `json:"strategies" yaml:"strategies"`
	SimulationsPerCell int            `json:"simulations_per_cell" yaml:"simulations_per_cell"`
	BatchSize          int            `json:"batch_size" yaml:"batch_size"`
	Rounds             int            `json:"rounds" yaml:"rounds"`

	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	BaseBet        float64 `json:"base_bet" yaml:"base_bet"`
	MaxBetPercent  float64 `json:"max_bet_percent" yaml:"max_bet_percent"`
	MaxBetSize     float64 `json:"max_bet_size" yaml:"max_bet_size"`
	MinBetSize     float64 `json:"min_bet_size" yaml:"min_bet_size"`

	Limits         RiskLimits     `json:"risk_limits" yaml:"risk_limits"`
	StrategyConfig StrategyParams `json:"strategy_config" yaml:"strategy_config"`

	Seed     uint64 `json:"seed,omitempty" yaml:"seed"`
	UseCache bool   `json:"use_cache" yaml:"use_cache"`
}

// TotalCells returns |winRates| x |riskRatios| x |strategies|.
func (r GridRequest) TotalCells() int {
	return len(r.WinRates) * len(r.RiskRatios) * len(r.Strategies)
}

// CellConfig builds the simulation config for one cell.
func (r GridRequest) CellConfig(key CellKey) SimulationConfig {
	return SimulationConfig{
		WinRate:        key.WinRate,
		RiskRatio:      key.RiskRatio,
		InitialBalance: r.InitialBalance,
		BaseBet:        r.BaseBet,
		Rounds:         r.Rounds,
		StrategyType:   key.Strategy,
		MaxBetPercent:  r.MaxBetPercent,
		MaxBetSize:     r.MaxBetSize,
		MinBetSize:     r.MinBetSize,
		Params:         r.StrategyConfig,
		Limits:         r.Limits,
		Seed:           r.Seed,
	}
}

// Keys enumerates cell keys winRate-major, then riskRatio, then strategy.
func (r GridRequest) Keys() []CellKey {
	keys := make([]CellKey, 0, r.TotalCells())
	for _, w := range r.WinRates {
		for _, rr := range r.RiskRatios {
			for _, s := range r.Strategies {
				keys = append(keys, CellKey{WinRate: w, RiskRatio: rr, Strategy: s})
			}
		}
	}
	return keys
}

// Validate checks the request before any simulation starts.
func (r GridRequest) Validate() error {
	var errs []string

	if len(r.WinRates) == 0 {
		errs = append(errs, "win_rates must not be empty")
	}
	for i, w := range r.WinRates {
		if !finite(w) || w <= 0 || w >= 1 {
			errs = append(errs, fmt.Sprintf("win_rates[%d] must be in (0,1)", i))
		}
	}
	errs = append(errs, duplicateAxis("win_rates", r.WinRates)...)
	if len(r.RiskRatios) == 0 {
		errs = append(errs, "risk_ratios must not be empty")
	}
	for i, rr := range r.RiskRatios {
		if !finite(rr) || rr <= 0 {
			errs = append(errs, fmt.Sprintf("risk_ratios[%d] must be > 0", i))
		}
	}
	errs = append(errs, duplicateAxis("risk_ratios", r.RiskRatios)...)
	if len(r.Strategies) == 0 {
		errs = append(errs, "strategies must not be empty")
	}
	seen := make(map[StrategyType]bool, len(r.Strategies))
	for i, s := range r.Strategies {
		if !s.Valid() {
			errs = append(errs, fmt.Sprintf("strategies[%d] %q is not a known strategy", i, s))
		}
		if seen[s] {
			errs = append(errs, fmt.Sprintf("strategies[%d] %q is duplicated", i, s))
		}
		seen[s] = true
	}
	if r.SimulationsPerCell <= 0 {
		errs = append(errs, "simulations_per_cell must be > 0")
	}
	if r.BatchSize < 0 {
		errs = append(errs, "batch_size must be >= 0")
	}
	if r.Rounds <= 0 {
		errs = append(errs, "rounds must be > 0")
	}
	if !finite(r.InitialBalance) || r.InitialBalance <= 0 {
		errs = append(errs, "initial_balance must be > 0")
	}
	if !finite(r.BaseBet) || r.BaseBet <= 0 {
		errs = append(errs, "base_bet must be > 0")
	}
	betting := SimulationConfig{
		MaxBetPercent: r.MaxBetPercent,
		MaxBetSize:    r.MaxBetSize,
		MinBetSize:    r.MinBetSize,
		Params:        r.StrategyConfig,
		Limits:        r.Limits,
	}
	errs = append(errs, betting.validateBetting()...)

	if len(errs) > 0 {
		return &ConfigError{Problems: errs}
	}
	return nil
}

// duplicateAxis reports axis values whose AxisKey repeats an earlier one.
func duplicateAxis(name string, values []float64) []string {
	var errs []string
	seen := make(map[string]int, len(values))
	for i, v := range values {
		if !finite(v) {
			continue
		}
		key := AxisKey(v)
		if first, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("%s[%d] duplicates %s[%d] (both %s)", name, i, name, first, key))
			continue
		}
		seen[key] = i
	}
	return errs
}
