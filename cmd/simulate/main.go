package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"betting-risk-lab/internal/batch"
	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/metrics"
	"betting-risk-lab/internal/simulation"
)

func main() {
	// Scenario
	winRate := flag.Float64("win-rate", 0.5, "Probability of winning a round, in (0,1)")
	riskRatio := flag.Float64("risk-ratio", 1.0, "Payout multiple of the wager on a win")
	initialBalance := flag.Float64("initial-balance", 1000, "Starting balance")
	baseBet := flag.Float64("base-bet", 10, "Base wager")
	rounds := flag.Int("rounds", 1000, "Maximum rounds per trial")
	strategyName := flag.String("strategy", "raw", "Strategy: raw, martingale, antiMartingale, linear, antiLinear, smartDouble, antiSmartDouble")

	// Bet limits
	maxBetPercent := flag.Float64("max-bet-percent", 10, "Maximum wager as percent of current balance")
	maxBetSize := flag.Float64("max-bet-size", 100, "Maximum absolute wager")
	minBetSize := flag.Float64("min-bet-size", 1, "Minimum wager when the balance allows it")
	smartDoubleX := flag.Int("smart-double-x", 3, "Consecutive losses before smartDouble doubles")
	antiSmartDoubleX := flag.Int("anti-smart-double-x", 3, "Consecutive wins before antiSmartDouble doubles")

	// Risk limits
	stopLoss := flag.Float64("stop-loss-pct", 0, "Stop when balance falls this percent below initial (0 = off)")
	takeProfit := flag.Float64("take-profit-pct", 0, "Stop when balance rises this percent above initial (0 = off)")
	maxLosses := flag.Int("max-consecutive-losses", 0, "Stop after this many consecutive losses (0 = off)")
	maxWins := flag.Int("max-consecutive-wins", 0, "Stop after this many consecutive wins (0 = off)")

	// Execution
	trials := flag.Int("trials", 1, "Number of trials; more than one prints aggregate statistics")
	workers := flag.Int("workers", 0, "Parallel workers for multi-trial runs (0 = GOMAXPROCS)")
	seed := flag.Uint64("seed", 0, "Random seed (0 = non-deterministic)")
	historyEvery := flag.Int("history-every", 0, "Record balance every N rounds for single trials (0 = off)")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	strategyType, err := domain.ParseStrategyType(*strategyName)
	if err != nil {
		logger.Fatalf("Invalid strategy: %v", err)
	}

	cfg := domain.SimulationConfig{
		WinRate:        *winRate,
		RiskRatio:      *riskRatio,
		InitialBalance: *initialBalance,
		BaseBet:        *baseBet,
		Rounds:         *rounds,
		StrategyType:   strategyType,
		MaxBetPercent:  *maxBetPercent,
		MaxBetSize:     *maxBetSize,
		MinBetSize:     *minBetSize,
		Params: domain.StrategyParams{
			SmartDoubleX:     *smartDoubleX,
			AntiSmartDoubleX: *antiSmartDoubleX,
		},
		Limits: domain.RiskLimits{
			StopLossPct:          *stopLoss,
			TakeProfitPct:        *takeProfit,
			MaxConsecutiveLosses: *maxLosses,
			MaxConsecutiveWins:   *maxWins,
		},
		Seed: *seed,
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *trials <= 1 {
		sim := simulation.New(simulation.Options{HistoryEvery: *historyEvery})
		var (
			out     domain.TrialOutcome
			history []domain.BalancePoint
		)
		if *historyEvery > 0 {
			out, history, err = sim.SimulateWithHistory(cfg)
		} else {
			out, err = sim.Simulate(cfg)
		}
		if err != nil {
			logger.Fatalf("Simulation failed: %v", err)
		}
		if err := enc.Encode(struct {
			Outcome domain.TrialOutcome   `json:"outcome"`
			History []domain.BalancePoint `json:"history,omitempty"`
		}{out, history}); err != nil {
			logger.Fatalf("Encode output: %v", err)
		}
		return
	}

	runner := batch.NewRunner(batch.RunnerOptions{Workers: *workers, Logger: logger})
	outcomes, err := runner.Run(ctx, cfg, *trials, func(completed, total int) {
		if completed == total || completed%(batch.DefaultChunkSize*10) == 0 {
			logger.Printf("Progress: %d/%d trials", completed, total)
		}
	})
	if err != nil {
		logger.Fatalf("Batch failed: %v", err)
	}

	stats := metrics.Aggregate(outcomes, cfg.InitialBalance)
	if err := enc.Encode(struct {
		Statistics     domain.AggregateStatistics `json:"statistics"`
		Classification domain.Classification      `json:"classification"`
		KellyFraction  float64                    `json:"kelly_fraction"`
	}{stats, metrics.Classify(stats), metrics.KellyFraction(cfg.WinRate, cfg.RiskRatio)}); err != nil {
		logger.Fatalf("Encode output: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%d trials: ruin %.2f%%, mean ROI %.2f%%\n", stats.Trials, stats.RuinPct, stats.MeanROI)
}
