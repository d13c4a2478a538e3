package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is matched by every ConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError lists every violated constraint of a configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrInvalidConfig) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// RiskLimits are optional early-stop rules. A zero value disables a rule.
type RiskLimits struct {
	StopLossPct          float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct"`     // stop when balance falls this % below initial
	TakeProfitPct        float64 `json:"take_profit_pct,omitempty" yaml:"take_profit_pct"` // stop when balance rises this % above initial
	MaxConsecutiveLosses int     `json:"max_consecutive_losses,omitempty" yaml:"max_consecutive_losses"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins,omitempty" yaml:"max_consecutive_wins"`
}

// Enabled reports whether any limit is configured.
func (l RiskLimits) Enabled() bool {
	return l.StopLossPct > 0 || l.TakeProfitPct > 0 || l.MaxConsecutiveLosses > 0 || l.MaxConsecutiveWins > 0
}

// SimulationConfig describes one trial. It is never mutated by the simulator.
type SimulationConfig struct {
	WinRate        float64      `json:"win_rate"`
	RiskRatio      float64      `json:"risk_ratio"` // payout multiple on win
	InitialBalance float64      `json:"initial_balance"`
	BaseBet        float64      `json:"base_bet"`
	Rounds         int          `json:"rounds"`
	StrategyType   StrategyType `json:"strategy_type"`

	MaxBetPercent float64 `json:"max_bet_percent"` // 0..100 of current balance
	MaxBetSize    float64 `json:"max_bet_size"`
	MinBetSize    float64 `json:"min_bet_size"`

	Params StrategyParams `json:"strategy_params"`
	Limits RiskLimits     `json:"risk_limits"`

	// Seed makes trials reproducible when non-zero.
	Seed uint64 `json:"seed,omitempty"`
}

// Validate checks the invariants of a single-trial configuration.
// Returns a *ConfigError listing all problems, or nil.
func (c SimulationConfig) Validate() error {
	var errs []string

	if !finite(c.WinRate) || c.WinRate <= 0 || c.WinRate >= 1 {
		errs = append(errs, "win_rate must be in (0,1)")
	}
	if !finite(c.RiskRatio) || c.RiskRatio <= 0 {
		errs = append(errs, "risk_ratio must be > 0")
	}
	if !finite(c.InitialBalance) || c.InitialBalance <= 0 {
		errs = append(errs, "initial_balance must be > 0")
	}
	if !finite(c.BaseBet) || c.BaseBet <= 0 {
		errs = append(errs, "base_bet must be > 0")
	}
	if c.Rounds <= 0 {
		errs = append(errs, "rounds must be > 0")
	}
	if !c.StrategyType.Valid() {
		errs = append(errs, fmt.Sprintf("strategy_type %q is not a known strategy", c.StrategyType))
	}
	errs = append(errs, c.validateBetting()...)

	if len(errs) > 0 {
		return &ConfigError{Problems: errs}
	}
	return nil
}

// validateBetting checks sizing, strategy params and risk limits shared with GridRequest.
func (c SimulationConfig) validateBetting() []string {
	var errs []string
	if !finite(c.MaxBetPercent) || c.MaxBetPercent < 0 || c.MaxBetPercent > 100 {
		errs = append(errs, "max_bet_percent must be in [0,100]")
	}
	if !finite(c.MaxBetSize) || c.MaxBetSize <= 0 {
		errs = append(errs, "max_bet_size must be > 0")
	}
	if !finite(c.MinBetSize) || c.MinBetSize < 0 {
		errs = append(errs, "min_bet_size must be >= 0")
	}
	if c.Params.SmartDoubleX <= 0 {
		errs = append(errs, "smart_double_x must be >= 1")
	}
	if c.Params.AntiSmartDoubleX <= 0 {
		errs = append(errs, "anti_smart_double_x must be >= 1")
	}
	if c.Limits.StopLossPct < 0 || c.Limits.StopLossPct > 100 {
		errs = append(errs, "stop_loss_pct must be in [0,100]")
	}
	if c.Limits.TakeProfitPct < 0 {
		errs = append(errs, "take_profit_pct must be >= 0")
	}
	if c.Limits.MaxConsecutiveLosses < 0 {
		errs = append(errs, "max_consecutive_losses must be >= 0")
	}
	if c.Limits.MaxConsecutiveWins < 0 {
		errs = append(errs, "max_consecutive_wins must be >= 0")
	}
	return errs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
