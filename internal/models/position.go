package models

import "time"

// Position is an open capital commitment for one trade. Owned exclusively by
// the position tracker; a trade identifier has at most one open Position.
type Position struct {
	TradeID    string    `json:"trade_id"`
	Strategy   string    `json:"strategy"`
	Asset      string    `json:"asset"`
	AmountSOL  float64   `json:"amount_sol"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Age returns how long the position has been open.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// ClosedPosition is a settled Position with its realized outcome.
type ClosedPosition struct {
	Position

	ExitAmountSOL float64       `json:"exit_amount_sol"`
	ExitPrice     float64       `json:"exit_price"`
	RealizedPnL   float64       `json:"realized_pnl"`
	ClosedAt      time.Time     `json:"closed_at"`
	HoldDuration  time.Duration `json:"hold_duration"`
}
