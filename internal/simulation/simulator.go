// Package simulation runs single betting trials.
package simulation

import (
	"errors"
	"fmt"
	"math"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/random"
	"betting-risk-lab/internal/strategy"
)

// Simulator errors
var (
	ErrNonFiniteBalance = errors.New("balance became non-finite")
)

// Simulator runs trials for a SimulationConfig.
type Simulator struct {
	sources      random.SourceFactory
	historyEvery int
}

// Options contains configuration for creating a Simulator.
type Options struct {
	// Sources overrides the per-trial random source. Nil derives one from cfg.Seed.
	Sources random.SourceFactory
	// HistoryEvery samples the balance history every N rounds. <= 1 records every round.
	HistoryEvery int
}

// New creates a Simulator.
func New(opts Options) *Simulator {
	return &Simulator{
		sources:      opts.Sources,
		historyEvery: opts.HistoryEvery,
	}
}

// Simulate validates cfg and runs one trial.
func (s *Simulator) Simulate(cfg domain.SimulationConfig) (domain.TrialOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return domain.TrialOutcome{}, err
	}
	out, _, err := Run(cfg, s.source(cfg, 0), -1)
	return out, err
}

// SimulateWithHistory validates cfg and runs one trial, recording the balance history.
// Round 0 and the last played round are always present in the history.
func (s *Simulator) SimulateWithHistory(cfg domain.SimulationConfig) (domain.TrialOutcome, []domain.BalancePoint, error) {
	if err := cfg.Validate(); err != nil {
		return domain.TrialOutcome{}, nil, err
	}
	every := s.historyEvery
	if every < 1 {
		every = 1
	}
	return Run(cfg, s.source(cfg, 0), every)
}

func (s *Simulator) source(cfg domain.SimulationConfig, trial int) random.Source {
	if s.sources != nil {
		return s.sources(trial)
	}
	return random.Factory(cfg.Seed)(trial)
}

// Run executes one trial against src without validating cfg.
// historyEvery < 1 disables history recording.
func Run(cfg domain.SimulationConfig, src random.Source, historyEvery int) (domain.TrialOutcome, []domain.BalancePoint, error) {
	machine, err := strategy.FromConfig(cfg)
	if err != nil {
		return domain.TrialOutcome{}, nil, fmt.Errorf("strategy %q: %w", cfg.StrategyType, err)
	}

	var history []domain.BalancePoint
	recording := historyEvery >= 1
	if recording {
		history = make([]domain.BalancePoint, 0, cfg.Rounds/historyEvery+2)
		history = append(history, domain.BalancePoint{Round: 0, Balance: cfg.InitialBalance})
	}

	// One draw per round, taken up front; rounds skipped by an early stop leave theirs unused.
	outcomes := random.Outcomes(cfg.Rounds, cfg.WinRate, src)

	balance := cfg.InitialBalance
	peak := balance
	state := machine.Initial()

	var (
		out                   domain.TrialOutcome
		winStreak, lossStreak int
		lastWager             float64
		lastWon               bool
	)
	out.StopReason = domain.StopCompleted

	for round := 1; round <= cfg.Rounds; round++ {
		wager := strategy.Wager(cfg, state, balance)
		won := outcomes[round-1]

		if won {
			balance += wager * cfg.RiskRatio
			out.Wins++
			winStreak++
			lossStreak = 0
		} else {
			balance -= wager
			out.Losses++
			lossStreak++
			winStreak = 0
		}
		if math.IsNaN(balance) || math.IsInf(balance, 0) {
			return domain.TrialOutcome{}, nil, fmt.Errorf("round %d: %w", round, ErrNonFiniteBalance)
		}

		out.RoundsPlayed = round
		out.TotalWagered += wager
		out.MaxConsecutiveWins = max(out.MaxConsecutiveWins, winStreak)
		out.MaxConsecutiveLosses = max(out.MaxConsecutiveLosses, lossStreak)
		lastWager, lastWon = wager, won

		state = machine.Next(state, won)

		if balance > peak {
			peak = balance
		}
		dd := peak - balance
		if dd > out.MaxDrawdown {
			out.MaxDrawdown = dd
		}
		if peak > 0 {
			if pct := dd / peak * 100; pct > out.MaxDrawdownPct {
				out.MaxDrawdownPct = pct
			}
		}

		if recording && (round%historyEvery == 0) {
			history = append(history, domain.BalancePoint{Round: round, Balance: balance, Wager: wager, Won: won})
		}

		if balance <= 0 {
			out.Ruined = true
			out.StopReason = domain.StopRuined
			break
		}
		if reason, stop := limitBreached(cfg, balance, winStreak, lossStreak); stop {
			out.StopReason = reason
			break
		}
	}

	if recording && history[len(history)-1].Round != out.RoundsPlayed {
		history = append(history, domain.BalancePoint{Round: out.RoundsPlayed, Balance: balance, Wager: lastWager, Won: lastWon})
	}

	out.FinalBalance = balance
	out.PeakBalance = peak
	out.ProfitLoss = balance - cfg.InitialBalance
	out.ROI = out.ProfitLoss / cfg.InitialBalance * 100
	if out.RoundsPlayed > 0 {
		out.AvgBetSize = out.TotalWagered / float64(out.RoundsPlayed)
	}
	return out, history, nil
}

// limitBreached checks the optional risk limits after a round.
func limitBreached(cfg domain.SimulationConfig, balance float64, winStreak, lossStreak int) (domain.StopReason, bool) {
	l := cfg.Limits
	if !l.Enabled() {
		return "", false
	}
	if l.StopLossPct > 0 && balance <= cfg.InitialBalance*(1-l.StopLossPct/100) {
		return domain.StopLoss, true
	}
	if l.TakeProfitPct > 0 && balance >= cfg.InitialBalance*(1+l.TakeProfitPct/100) {
		return domain.StopTakeProfit, true
	}
	if l.MaxConsecutiveLosses > 0 && lossStreak >= l.MaxConsecutiveLosses {
		return domain.StopLossStreak, true
	}
	if l.MaxConsecutiveWins > 0 && winStreak >= l.MaxConsecutiveWins {
		return domain.StopWinStreak, true
	}
	return "", false
}
