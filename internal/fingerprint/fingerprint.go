// Package fingerprint computes the cache key of a grid request.
package fingerprint

import (
	"crypto/sha256"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"betting-risk-lab/internal/domain"
)

// Version is bumped whenever the field list or encoding below changes,
// which invalidates every previously cached grid.
const Version = "v1"

// Compute returns a deterministic fingerprint of every input that affects a grid.
// Formula: base58(SHA256(version|winRates|riskRatios|strategies|simulations|rounds|
// initialBalance|baseBet|maxBetPercent|maxBetSize|minBetSize|smartDoubleX|antiSmartDoubleX|
// stopLoss|takeProfit|maxLosses|maxWins|seed))
// Axes keep their request order. BatchSize and UseCache are excluded: they change
// scheduling, not results.
func Compute(req domain.GridRequest) string {
	fields := []string{
		Version,
		joinFloats(req.WinRates),
		joinFloats(req.RiskRatios),
		joinStrategies(req.Strategies),
		strconv.Itoa(req.SimulationsPerCell),
		strconv.Itoa(req.Rounds),
		formatFloat(req.InitialBalance),
		formatFloat(req.BaseBet),
		formatFloat(req.MaxBetPercent),
		formatFloat(req.MaxBetSize),
		formatFloat(req.MinBetSize),
		strconv.Itoa(req.StrategyConfig.SmartDoubleX),
		strconv.Itoa(req.StrategyConfig.AntiSmartDoubleX),
		formatFloat(req.Limits.StopLossPct),
		formatFloat(req.Limits.TakeProfitPct),
		strconv.Itoa(req.Limits.MaxConsecutiveLosses),
		strconv.Itoa(req.Limits.MaxConsecutiveWins),
		strconv.FormatUint(req.Seed, 10),
	}

	hash := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return base58.Encode(hash[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

func joinStrategies(values []domain.StrategyType) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
