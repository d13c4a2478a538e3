package domain

import (
	"fmt"
	"strings"
)

// StrategyType identifies a betting strategy variant.
// The set is closed: every value is one of the constants below.
type StrategyType string

// Strategy type constants
const (
	StrategyRaw             StrategyType = "raw"
	StrategyMartingale      StrategyType = "martingale"
	StrategyAntiMartingale  StrategyType = "antiMartingale"
	StrategyLinear          StrategyType = "linear"
	StrategyAntiLinear      StrategyType = "antiLinear"
	StrategySmartDouble     StrategyType = "smartDouble"
	StrategyAntiSmartDouble StrategyType = "antiSmartDouble"
)

// AllStrategies lists every strategy in canonical display order.
var AllStrategies = []StrategyType{
	StrategyRaw,
	StrategyMartingale,
	StrategyAntiMartingale,
	StrategyLinear,
	StrategyAntiLinear,
	StrategySmartDouble,
	StrategyAntiSmartDouble,
}

// Valid reports whether s is a known strategy.
func (s StrategyType) Valid() bool {
	switch s {
	case StrategyRaw, StrategyMartingale, StrategyAntiMartingale,
		StrategyLinear, StrategyAntiLinear,
		StrategySmartDouble, StrategyAntiSmartDouble:
		return true
	}
	return false
}

// ParseStrategyType resolves a strategy name case-insensitively.
// Accepts snake_case and kebab-case spellings ("anti_martingale", "smart-double").
func ParseStrategyType(name string) (StrategyType, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(name)))
	for _, s := range AllStrategies {
		if strings.ToLower(string(s)) == norm {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// ParseStrategyList parses a comma-separated list of strategies.
// "all" or an empty string selects AllStrategies.
func ParseStrategyList(list string) ([]StrategyType, error) {
	list = strings.TrimSpace(list)
	if list == "" || strings.EqualFold(list, "all") {
		return append([]StrategyType(nil), AllStrategies...), nil
	}
	var out []StrategyType
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStrategyType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StrategyParams holds the trigger thresholds of the smart double variants.
type StrategyParams struct {
	SmartDoubleX     int `json:"smart_double_x" yaml:"smart_double_x"`           // consecutive losses before doubling
	AntiSmartDoubleX int `json:"anti_smart_double_x" yaml:"anti_smart_double_x"` // consecutive wins before doubling
}
