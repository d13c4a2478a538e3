package domain

// StopReason explains why a trial ended.
type StopReason string

// Stop reason constants
const (
	StopCompleted  StopReason = "completed"   // all rounds played
	StopRuined     StopReason = "ruined"      // balance reached <= 0
	StopLoss       StopReason = "stop_loss"   // RiskLimits.StopLossPct breached
	StopTakeProfit StopReason = "take_profit" // RiskLimits.TakeProfitPct reached
	StopLossStreak StopReason = "loss_streak" // RiskLimits.MaxConsecutiveLosses reached
	StopWinStreak  StopReason = "win_streak"  // RiskLimits.MaxConsecutiveWins reached
)

// TrialOutcome is the result of one simulated trial.
type TrialOutcome struct {
	FinalBalance float64 `json:"final_balance"`
	ProfitLoss   float64 `json:"profit_loss"`
	ROI          float64 `json:"roi"` // percent of initial balance

	MaxDrawdown    float64 `json:"max_drawdown"`     // absolute, from running peak
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // percent of running peak
	PeakBalance    float64 `json:"peak_balance"`

	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	RoundsPlayed int `json:"rounds_played"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	Ruined     bool       `json:"ruined"`
	StopReason StopReason `json:"stop_reason"`

	AvgBetSize   float64 `json:"avg_bet_size"`
	TotalWagered float64 `json:"total_wagered"`
}

// Profitable reports whether the trial ended above its initial balance.
func (o TrialOutcome) Profitable() bool {
	return o.ProfitLoss > 0
}

// BalancePoint is one sample of a trial's balance history.
// Round 0 is the initial balance before any bet.
type BalancePoint struct {
	Round   int     `json:"round"`
	Balance float64 `json:"balance"`
	Wager   float64 `json:"wager,omitempty"`
	Won     bool    `json:"won,omitempty"`
}
