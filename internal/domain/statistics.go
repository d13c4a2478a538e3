package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Infinity renderings used when a Ratio is serialized.
const (
	PosInfinity = "∞"
	NegInfinity = "-∞"
)

// Ratio is a float64 that may hold ±Inf.
// It marshals infinities as "∞" / "-∞" strings, since JSON has no infinity literal.
type Ratio float64

// IsInf reports whether r is infinite with the given sign (see math.IsInf).
func (r Ratio) IsInf(sign int) bool {
	return math.IsInf(float64(r), sign)
}

// String renders r with infinities as "∞" / "-∞".
func (r Ratio) String() string {
	switch {
	case r.IsInf(1):
		return PosInfinity
	case r.IsInf(-1):
		return NegInfinity
	}
	return fmt.Sprintf("%.4f", float64(r))
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	switch {
	case r.IsInf(1):
		return json.Marshal(PosInfinity)
	case r.IsInf(-1):
		return json.Marshal(NegInfinity)
	case math.IsNaN(float64(r)):
		return []byte("0"), nil
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch s {
		case PosInfinity, "Infinity", "+Inf":
			*r = Ratio(math.Inf(1))
		case NegInfinity, "-Infinity", "-Inf":
			*r = Ratio(math.Inf(-1))
		default:
			return fmt.Errorf("invalid ratio %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// AggregateStatistics summarizes a set of trial outcomes.
// Always rebuilt from a trial set, never updated in place.
type AggregateStatistics struct {
	Trials         int     `json:"trials"`
	InitialBalance float64 `json:"initial_balance"`

	// Final balance distribution
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Percentile5  float64 `json:"percentile_5"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile75 float64 `json:"percentile_75"`
	Percentile95 float64 `json:"percentile_95"`

	// Return
	MeanROI    float64 `json:"mean_roi"`
	MedianROI  float64 `json:"median_roi"`
	Volatility float64 `json:"volatility"` // stddev of ROI

	// Drawdown, percent of running peak
	MaxDrawdownMean   float64 `json:"max_drawdown_mean"`
	MaxDrawdownMedian float64 `json:"max_drawdown_median"`
	MaxDrawdownAbs    float64 `json:"max_drawdown_abs_mean"`

	// Risk-adjusted
	SharpeRatio  Ratio `json:"sharpe_ratio"`
	CalmarRatio  Ratio `json:"calmar_ratio"`
	SortinoRatio Ratio `json:"sortino_ratio"`

	ProfitablePct  float64 `json:"profitable_pct"`
	RuinPct        float64 `json:"ruin_pct"`
	EarlyStopPct   float64 `json:"early_stop_pct"` // stopped by a risk limit, not ruin
	ExpectedProfit float64 `json:"expected_profit"`

	MeanRounds float64 `json:"mean_rounds"`
	MinRounds  int     `json:"min_rounds"`
	MaxRounds  int     `json:"max_rounds"`
	MeanBet    float64 `json:"mean_bet"`
}
