package models

import "time"

// Terminal outcome categories. Every finished execution attempt is
// attributable to exactly one of these for post-hoc auditing.
const (
	OutcomeLanded           = "landed"
	OutcomeFailed           = "failed"
	OutcomeExpired          = "expired"
	OutcomeRejectedEconomic = "rejected_economic"
)

// OutcomeSubmitted is the interim state recorded when a bundle goes out; it
// is replaced by a terminal outcome once the bundle settles.
const OutcomeSubmitted = "submitted"

// TradeRecord is the durable record of one execution attempt, written through
// the ledger collaborator.
type TradeRecord struct {
	TradeID       string    `json:"trade_id"`
	OpportunityID string    `json:"opportunity_id"`
	Strategy      string    `json:"strategy"`
	Path          []string  `json:"path"`
	InAmountSOL   float64   `json:"in_amount_sol"`
	OutAmountSOL  float64   `json:"out_amount_sol"`
	ProfitSOL     float64   `json:"profit_sol"`
	ProfitUSD     float64   `json:"profit_usd"`
	Outcome       string    `json:"outcome"`
	FailureClass  string    `json:"failure_class,omitempty"`
	BundleID      string    `json:"bundle_id,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	SettledAt     time.Time `json:"settled_at"`
}

// SimulationResult is the outcome of one preflight dry run. Ephemeral,
// produced and consumed within a single execution attempt.
type SimulationResult struct {
	Success       bool     `json:"success"`
	UnitsConsumed uint64   `json:"units_consumed"`
	ErrorClass    string   `json:"error_class,omitempty"`
	RawError      string   `json:"raw_error,omitempty"`
	Logs          []string `json:"logs,omitempty"`
}

// PendingTransfer is a large observed pending swap that may be frontrunnable.
type PendingTransfer struct {
	Signature string    `json:"signature"`
	Mint      string    `json:"mint"`
	SizeSOL   float64   `json:"size_sol"`
	Buy       bool      `json:"buy"` // true if the transfer buys the base asset
	SeenAt    time.Time `json:"seen_at"`
}
