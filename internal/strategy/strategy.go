// Package strategy implements the betting rules as pure state transitions.
package strategy

import (
	"betting-risk-lab/internal/domain"
)

// State is the per-trial betting state carried between rounds.
// Bet is the transition-computed (pre-clamp) bet size.
type State struct {
	Bet     float64
	Counter int // consecutive wins or losses, depending on the strategy
}

// Initial returns the starting state: base bet, zero counter.
func Initial(baseBet float64) State {
	return State{Bet: baseBet}
}

// Params are the thresholds the smart double variants read.
type Params = domain.StrategyParams

// rule maps (state, baseBet, threshold) to the next state.
type rule func(s State, base float64, x int) State

// rules pairs the win and loss halves of one strategy.
type rules struct {
	onWin  rule
	onLoss rule
	// threshold selects which Params field feeds x.
	threshold func(p Params) int
}

// MaxAntiMartingaleDoublings caps consecutive doublings after wins.
// The win after the cap resets the bet to base.
const MaxAntiMartingaleDoublings = 3

func reset(_ State, base float64, _ int) State { return State{Bet: base} }

func keep(_ State, base float64, _ int) State { return State{Bet: base} }

func double(s State, _ float64, _ int) State {
	return State{Bet: s.Bet * 2, Counter: s.Counter + 1}
}

func cappedDouble(s State, base float64, _ int) State {
	if s.Counter >= MaxAntiMartingaleDoublings {
		return State{Bet: base}
	}
	return State{Bet: s.Bet * 2, Counter: s.Counter + 1}
}

func addBase(s State, base float64, _ int) State {
	return State{Bet: s.Bet + base, Counter: s.Counter + 1}
}

func doubleAfterStreak(s State, base float64, x int) State {
	next := State{Bet: base, Counter: s.Counter + 1}
	if next.Counter >= x {
		next.Bet = 2 * base
	}
	return next
}

func noThreshold(Params) int { return 0 }

// table holds the transition pair for every strategy.
var table = map[domain.StrategyType]rules{
	domain.StrategyRaw:            {onWin: keep, onLoss: keep, threshold: noThreshold},
	domain.StrategyMartingale:     {onWin: reset, onLoss: double, threshold: noThreshold},
	domain.StrategyAntiMartingale: {onWin: cappedDouble, onLoss: reset, threshold: noThreshold},
	domain.StrategyLinear:         {onWin: reset, onLoss: addBase, threshold: noThreshold},
	domain.StrategyAntiLinear:     {onWin: addBase, onLoss: reset, threshold: noThreshold},
	domain.StrategySmartDouble: {
		onWin:     reset,
		onLoss:    doubleAfterStreak,
		threshold: func(p Params) int { return p.SmartDoubleX },
	},
	domain.StrategyAntiSmartDouble: {
		onWin:     doubleAfterStreak,
		onLoss:    reset,
		threshold: func(p Params) int { return p.AntiSmartDoubleX },
	},
}

// Next applies one round's outcome to the state.
// It is a pure function of its arguments. Unknown strategies keep the base bet.
func Next(t domain.StrategyType, s State, baseBet float64, won bool, p Params) State {
	r, ok := table[t]
	if !ok {
		return State{Bet: baseBet}
	}
	x := r.threshold(p)
	if won {
		return r.onWin(s, baseBet, x)
	}
	return r.onLoss(s, baseBet, x)
}
