package strategy

import (
	"math"

	"betting-risk-lab/internal/domain"
)

// MinWagerUnit is the wager forced when the clamp yields zero or less.
const MinWagerUnit = 1.0

// Wager returns the amount actually staked this round.
//
// raw stakes its fixed base bet, capped only by the balance.
// Every other strategy stakes min(bet, balance*maxBetPercent/100, maxBetSize, balance),
// raised to minBetSize when the balance allows it, and forced to MinWagerUnit when
// the clamp would yield <= 0.
func Wager(cfg domain.SimulationConfig, s State, balance float64) float64 {
	if cfg.StrategyType == domain.StrategyRaw {
		return math.Min(cfg.BaseBet, balance)
	}

	w := math.Min(s.Bet, balance*cfg.MaxBetPercent/100)
	w = math.Min(w, cfg.MaxBetSize)
	w = math.Min(w, balance)

	if cfg.MinBetSize > 0 && w < cfg.MinBetSize && balance >= cfg.MinBetSize {
		w = cfg.MinBetSize
	}
	if w <= 0 || math.IsNaN(w) {
		w = MinWagerUnit
	}
	return w
}
