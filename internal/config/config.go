// Package config loads grid requests from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"betting-risk-lab/internal/domain"
)

// Environment variables that override file values.
const (
	EnvSimulations = "GRID_SIMULATIONS"
	EnvRounds      = "GRID_ROUNDS"
	EnvBatchSize   = "GRID_BATCH_SIZE"
	EnvSeed        = "GRID_SEED"
	EnvStrategies  = "GRID_STRATEGIES"
)

// DefaultGrid returns the request used when no file overrides it:
// win rates 0.30..0.70 in 0.05 steps, five risk ratios and every strategy.
func DefaultGrid() domain.GridRequest {
	winRates := make([]float64, 0, 9)
	for i := 0; i <= 8; i++ {
		// integer steps avoid accumulated float error in the axis
		winRates = append(winRates, float64(30+5*i)/100)
	}
	return domain.GridRequest{
		WinRates:           winRates,
		RiskRatios:         []float64{0.5, 1, 1.5, 2, 3},
		Strategies:         append([]domain.StrategyType(nil), domain.AllStrategies...),
		SimulationsPerCell: 1000,
		BatchSize:          100,
		Rounds:             1000,
		InitialBalance:     1000,
		BaseBet:            10,
		MaxBetPercent:      10,
		MaxBetSize:         100,
		MinBetSize:         1,
		StrategyConfig:     domain.StrategyParams{SmartDoubleX: 3, AntiSmartDoubleX: 3},
		UseCache:           true,
	}
}

// LoadGrid reads a grid request from a YAML file on top of DefaultGrid,
// then applies environment overrides and validates the result.
// A missing file is not an error; an empty path skips the file.
func LoadGrid(path string) (domain.GridRequest, error) {
	req := DefaultGrid()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return domain.GridRequest{}, fmt.Errorf("read grid config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &req); err != nil {
				return domain.GridRequest{}, fmt.Errorf("parse grid config: %w", err)
			}
		}
	}

	if err := applyEnv(&req, os.Getenv); err != nil {
		return domain.GridRequest{}, err
	}
	if err := normalizeStrategies(&req); err != nil {
		return domain.GridRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.GridRequest{}, err
	}
	return req, nil
}

// applyEnv overrides request fields from the environment.
func applyEnv(req *domain.GridRequest, getenv func(string) string) error {
	if v := getenv(EnvSimulations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSimulations, err)
		}
		req.SimulationsPerCell = n
	}
	if v := getenv(EnvRounds); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRounds, err)
		}
		req.Rounds = n
	}
	if v := getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		req.BatchSize = n
	}
	if v := getenv(EnvSeed); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		req.Seed = n
	}
	if v := getenv(EnvStrategies); v != "" {
		list, err := domain.ParseStrategyList(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrategies, err)
		}
		req.Strategies = list
	}
	return nil
}

// normalizeStrategies accepts the spellings ParseStrategyType does
// ("anti_martingale", "smart-double") in YAML files.
func normalizeStrategies(req *domain.GridRequest) error {
	for i, s := range req.Strategies {
		parsed, err := domain.ParseStrategyType(string(s))
		if err != nil {
			return fmt.Errorf("strategies[%d]: %w", i, err)
		}
		req.Strategies[i] = parsed
	}
	return nil
}
