package strategy

import (
	"testing"

	"betting-risk-lab/internal/domain"
)

func wagerConfig(st domain.StrategyType) domain.SimulationConfig {
	return domain.SimulationConfig{
		StrategyType:  st,
		BaseBet:       10,
		MaxBetPercent: 10,
		MaxBetSize:    100,
		MinBetSize:    0,
	}
}

func TestWager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() domain.SimulationConfig
		bet     float64
		balance float64
		want    float64
	}{
		{
			name:    "computed bet under every cap",
			cfg:     func() domain.SimulationConfig { return wagerConfig(domain.StrategyMartingale) },
			bet:     40,
			balance: 1000,
			want:    40,
		},
		{
			name:    "capped by balance percent",
			cfg:     func() domain.SimulationConfig { return wagerConfig(domain.StrategyMartingale) },
			bet:     160,
			balance: 1000,
			want:    100,
		},
		{
			name: "capped by max bet size",
			cfg: func() domain.SimulationConfig {
				c := wagerConfig(domain.StrategyMartingale)
				c.MaxBetSize = 50
				return c
			},
			bet:     80,
			balance: 1000,
			want:    50,
		},
		{
			name: "capped by balance",
			cfg: func() domain.SimulationConfig {
				c := wagerConfig(domain.StrategyLinear)
				c.MaxBetPercent = 100
				return c
			},
			bet:     30,
			balance: 12,
			want:    12,
		},
		{
			name: "zero percent forces one unit",
			cfg: func() domain.SimulationConfig {
				c := wagerConfig(domain.StrategyMartingale)
				c.MaxBetPercent = 0
				return c
			},
			bet:     10,
			balance: 1000,
			want:    MinWagerUnit,
		},
		{
			name: "min bet raises small wager",
			cfg: func() domain.SimulationConfig {
				c := wagerConfig(domain.StrategyMartingale)
				c.MinBetSize = 5
				return c
			},
			bet:     10,
			balance: 20,
			want:    5,
		},
		{
			name:    "raw ignores caps",
			cfg:     func() domain.SimulationConfig { return wagerConfig(domain.StrategyRaw) },
			bet:     999,
			balance: 50,
			want:    10,
		},
		{
			name:    "raw capped at balance",
			cfg:     func() domain.SimulationConfig { return wagerConfig(domain.StrategyRaw) },
			bet:     10,
			balance: 4,
			want:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wager(tt.cfg(), State{Bet: tt.bet}, tt.balance)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
