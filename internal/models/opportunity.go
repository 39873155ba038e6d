package models

import (
	"fmt"
	"time"
)

// Strategy tags.
const (
	StrategyCyclic     = "cyclic"
	StrategyTriangular = "triangular"
	StrategyFrontrun   = "frontrun"
)

// Opportunity is a scored, time-boxed candidate multi-leg trade. Created by a
// scanner, consumed exactly once by the orchestrator (accepted, rejected, or
// expired). Must never be acted on after ExpiresAt.
type Opportunity struct {
	ID       string `json:"id"`
	Strategy string `json:"strategy"`

	// Ordered asset path, e.g. SOL -> X -> SOL.
	Path   []string `json:"path"`
	Quotes []*Quote `json:"quotes,omitempty"`

	// Amounts in base-asset lamports.
	InAmount    uint64 `json:"in_amount"`
	ExpectedOut uint64 `json:"expected_out"`

	NetProfitSOL float64 `json:"net_profit_sol"`
	NetProfitUSD float64 `json:"net_profit_usd"`
	Confidence   float64 `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewOpportunity constructs an Opportunity with a generated ID and validity
// window. The window must be positive so that ExpiresAt > CreatedAt always
// holds.
func NewOpportunity(strategy string, path []string, validity time.Duration) (*Opportunity, error) {
	if strategy == "" {
		return nil, fmt.Errorf("opportunity: strategy is required")
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("opportunity: path needs at least two assets")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("opportunity: validity must be positive")
	}
	now := time.Now()
	return &Opportunity{
		ID:        fmt.Sprintf("%s_%d", strategy, now.UnixNano()),
		Strategy:  strategy,
		Path:      path,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
	}, nil
}

// Expired reports whether the opportunity is past its validity window.
func (o *Opportunity) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Legs returns the number of swap legs in the path.
func (o *Opportunity) Legs() int {
	return len(o.Path) - 1
}
