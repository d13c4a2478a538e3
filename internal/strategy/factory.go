package strategy

import (
	"errors"

	"betting-risk-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingBaseBet      = errors.New("strategy requires a positive base bet")
	ErrMissingSmartDoubleX = errors.New("smartDouble requires SmartDoubleX >= 1")
	ErrMissingAntiDoubleX  = errors.New("antiSmartDouble requires AntiSmartDoubleX >= 1")
)

// Machine binds a strategy to its base bet and thresholds.
type Machine struct {
	Type    domain.StrategyType
	BaseBet float64
	Params  Params
}

// FromConfig creates a Machine from a simulation config.
// Validates the parameters the selected strategy reads.
func FromConfig(cfg domain.SimulationConfig) (*Machine, error) {
	if _, ok := table[cfg.StrategyType]; !ok {
		return nil, ErrUnknownStrategyType
	}
	if cfg.BaseBet <= 0 {
		return nil, ErrMissingBaseBet
	}
	switch cfg.StrategyType {
	case domain.StrategySmartDouble:
		if cfg.Params.SmartDoubleX <= 0 {
			return nil, ErrMissingSmartDoubleX
		}
	case domain.StrategyAntiSmartDouble:
		if cfg.Params.AntiSmartDoubleX <= 0 {
			return nil, ErrMissingAntiDoubleX
		}
	}
	return &Machine{Type: cfg.StrategyType, BaseBet: cfg.BaseBet, Params: cfg.Params}, nil
}

// Initial returns the machine's starting state.
func (m *Machine) Initial() State {
	return Initial(m.BaseBet)
}

// Next applies one outcome.
func (m *Machine) Next(s State, won bool) State {
	return Next(m.Type, s, m.BaseBet, won, m.Params)
}
