package simulation

import (
	"errors"
	"math"
	"testing"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/random"
	"betting-risk-lab/internal/strategy"
)

func baseConfig(st domain.StrategyType) domain.SimulationConfig {
	return domain.SimulationConfig{
		WinRate:        0.5,
		RiskRatio:      1,
		InitialBalance: 1000,
		BaseBet:        10,
		Rounds:         100,
		StrategyType:   st,
		MaxBetPercent:  100,
		MaxBetSize:     1000,
		Params:         domain.StrategyParams{SmartDoubleX: 3, AntiSmartDoubleX: 3},
	}
}

// scripted returns a simulator whose every trial replays the given outcomes.
func scripted(wins ...bool) *Simulator {
	return New(Options{Sources: func(int) random.Source { return random.Script(wins...) }})
}

func TestSimulate_MartingaleRuin(t *testing.T) {
	cfg := baseConfig(domain.StrategyMartingale)
	cfg.InitialBalance = 100

	out, err := scripted(false).Simulate(cfg)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// 10 + 20 + 40 lost, the 80 bet is clamped to the remaining 30.
	if !out.Ruined {
		t.Fatal("expected ruined trial")
	}
	if out.RoundsPlayed != 4 {
		t.Errorf("expected 4 rounds, got %d", out.RoundsPlayed)
	}
	if out.RoundsPlayed >= cfg.Rounds {
		t.Error("ruined trial must stop before the round budget")
	}
	if out.FinalBalance != 0 {
		t.Errorf("expected final balance 0, got %v", out.FinalBalance)
	}
	if out.StopReason != domain.StopRuined {
		t.Errorf("expected stop reason ruined, got %s", out.StopReason)
	}
	if out.MaxDrawdownPct != 100 {
		t.Errorf("expected 100%% drawdown, got %v", out.MaxDrawdownPct)
	}
	if out.ROI != -100 {
		t.Errorf("expected ROI -100, got %v", out.ROI)
	}
	if out.AvgBetSize != 25 {
		t.Errorf("expected avg bet 25, got %v", out.AvgBetSize)
	}
	if out.MaxConsecutiveLosses != 4 {
		t.Errorf("expected loss streak 4, got %d", out.MaxConsecutiveLosses)
	}
}

func TestSimulate_RawCappedAtBalance(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.InitialBalance = 25

	out, err := scripted(false).Simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Ruined || out.RoundsPlayed != 3 {
		t.Errorf("expected ruin after 3 rounds, got ruined=%v rounds=%d", out.Ruined, out.RoundsPlayed)
	}
	if out.TotalWagered != 25 {
		t.Errorf("expected 25 wagered, got %v", out.TotalWagered)
	}
}

func TestSimulate_CompletesWithoutRuin(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.Rounds = 20

	out, err := scripted(true, false).Simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if out.Ruined {
		t.Error("trial should not be ruined")
	}
	if out.RoundsPlayed != cfg.Rounds {
		t.Errorf("expected %d rounds, got %d", cfg.Rounds, out.RoundsPlayed)
	}
	if out.StopReason != domain.StopCompleted {
		t.Errorf("expected completed, got %s", out.StopReason)
	}
	if out.Wins != 1 || out.Losses != 19 {
		t.Errorf("expected 1 win / 19 losses, got %d / %d", out.Wins, out.Losses)
	}
}

func TestSimulate_DrawdownFromPeak(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.Rounds = 3

	out, err := scripted(true, true, false).Simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if out.PeakBalance != 1020 {
		t.Errorf("expected peak 1020, got %v", out.PeakBalance)
	}
	if out.MaxDrawdown != 10 {
		t.Errorf("expected abs drawdown 10, got %v", out.MaxDrawdown)
	}
	want := 10.0 / 1020 * 100
	if math.Abs(out.MaxDrawdownPct-want) > 1e-9 {
		t.Errorf("expected drawdown %v%%, got %v%%", want, out.MaxDrawdownPct)
	}
}

func TestSimulate_RiskLimits(t *testing.T) {
	tests := []struct {
		name   string
		limits domain.RiskLimits
		wins   []bool
		reason domain.StopReason
		rounds int
	}{
		{"stop loss", domain.RiskLimits{StopLossPct: 5}, []bool{false}, domain.StopLoss, 5},
		{"take profit", domain.RiskLimits{TakeProfitPct: 3}, []bool{true}, domain.StopTakeProfit, 3},
		{"loss streak", domain.RiskLimits{MaxConsecutiveLosses: 2}, []bool{true, false}, domain.StopLossStreak, 3},
		{"win streak", domain.RiskLimits{MaxConsecutiveWins: 4}, []bool{true}, domain.StopWinStreak, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(domain.StrategyRaw)
			cfg.Limits = tt.limits

			out, err := scripted(tt.wins...).Simulate(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if out.Ruined {
				t.Error("limit stop must not be reported as ruin")
			}
			if out.StopReason != tt.reason {
				t.Errorf("expected %s, got %s", tt.reason, out.StopReason)
			}
			if out.RoundsPlayed != tt.rounds {
				t.Errorf("expected %d rounds, got %d", tt.rounds, out.RoundsPlayed)
			}
		})
	}
}

func TestSimulateWithHistory_Sampling(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.Rounds = 10

	sim := New(Options{
		Sources:      func(int) random.Source { return random.Script(true) },
		HistoryEvery: 3,
	})
	out, history, err := sim.SimulateWithHistory(cfg)
	if err != nil {
		t.Fatal(err)
	}

	wantRounds := []int{0, 3, 6, 9, 10}
	if len(history) != len(wantRounds) {
		t.Fatalf("expected %d points, got %d", len(wantRounds), len(history))
	}
	for i, r := range wantRounds {
		if history[i].Round != r {
			t.Errorf("point %d: expected round %d, got %d", i, r, history[i].Round)
		}
	}
	if history[0].Balance != 1000 {
		t.Errorf("expected initial balance at round 0, got %v", history[0].Balance)
	}
	if last := history[len(history)-1]; last.Balance != out.FinalBalance {
		t.Errorf("last point %v does not match final balance %v", last.Balance, out.FinalBalance)
	}
}

func TestSimulateWithHistory_EveryRound(t *testing.T) {
	cfg := baseConfig(domain.StrategyMartingale)
	cfg.Rounds = 5

	_, history, err := scripted(false, false, true).SimulateWithHistory(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 6 {
		t.Fatalf("expected 6 points, got %d", len(history))
	}
	wantWagers := []float64{0, 10, 20, 40, 10, 10}
	for i, w := range wantWagers {
		if history[i].Wager != w {
			t.Errorf("round %d: expected wager %v, got %v", i, w, history[i].Wager)
		}
	}
}

func TestSimulate_InvalidConfig(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.WinRate = 1.5

	_, err := New(Options{}).Simulate(cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSimulate_SeedReproducible(t *testing.T) {
	cfg := baseConfig(domain.StrategyAntiMartingale)
	cfg.Seed = 42
	cfg.Rounds = 500

	sim := New(Options{})
	a, err := sim.Simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sim.Simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("seeded trials differ:\n%+v\n%+v", a, b)
	}
}

func TestRun_NonFiniteBalance(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.RiskRatio = math.MaxFloat64
	cfg.InitialBalance = math.MaxFloat64 / 2

	_, _, err := Run(cfg, random.Script(true), -1)
	if !errors.Is(err, ErrNonFiniteBalance) {
		t.Fatalf("expected ErrNonFiniteBalance, got %v", err)
	}
}

func TestRun_UnknownStrategy(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.StrategyType = "fibonacci"

	_, _, err := Run(cfg, random.Script(true), -1)
	if !errors.Is(err, strategy.ErrUnknownStrategyType) {
		t.Fatalf("expected ErrUnknownStrategyType, got %v", err)
	}
}

func TestRun_PlaysPregeneratedOutcomes(t *testing.T) {
	cfg := baseConfig(domain.StrategyRaw)
	cfg.WinRate = 0.4
	cfg.BaseBet = 1
	cfg.Rounds = 200

	out, history, err := Run(cfg, random.Factory(17)(3), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := random.Outcomes(cfg.Rounds, cfg.WinRate, random.Factory(17)(3))
	if out.RoundsPlayed != len(want) {
		t.Fatalf("expected %d rounds, got %d", len(want), out.RoundsPlayed)
	}
	wins := 0
	for _, p := range history[1:] {
		if p.Won != want[p.Round-1] {
			t.Fatalf("round %d: won=%v, pre-generated %v", p.Round, p.Won, want[p.Round-1])
		}
		if p.Won {
			wins++
		}
	}
	if wins != out.Wins {
		t.Errorf("history wins %d, outcome wins %d", wins, out.Wins)
	}
}
