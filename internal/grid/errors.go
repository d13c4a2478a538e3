package grid

import (
	"errors"
	"fmt"

	"betting-risk-lab/internal/domain"
)

// Generator errors
var (
	ErrNoRunner          = errors.New("grid generator requires a batch runner")
	ErrIllegalTransition = errors.New("illegal generation state transition")
)

// CellError identifies the cell whose batch aborted a generation.
type CellError struct {
	WinRate   float64
	RiskRatio float64
	Strategy  domain.StrategyType
	Err       error
}

func newCellError(key domain.CellKey, err error) *CellError {
	return &CellError{WinRate: key.WinRate, RiskRatio: key.RiskRatio, Strategy: key.Strategy, Err: err}
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell winRate=%.2f riskRatio=%.2f strategy=%s: %v", e.WinRate, e.RiskRatio, e.Strategy, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }
