package models

import (
	"fmt"
	"time"
)

// RouteStep is one hop of a priced route.
type RouteStep struct {
	AmmKey     string `json:"amm_key"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	FeeBps     uint16 `json:"fee_bps"`
}

// Quote is a priced offer for one leg: give InAmount of InputMint, receive
// OutAmount of OutputMint. Immutable once obtained; consumed exactly once and
// never re-fetched mid-trade.
type Quote struct {
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	InAmount   uint64 `json:"in_amount"`
	OutAmount  uint64 `json:"out_amount"`

	SlippageBps    uint16      `json:"slippage_bps"`
	PriceImpactPct float64     `json:"price_impact_pct"`
	Route          []RouteStep `json:"route"`

	FetchedAt  time.Time `json:"fetched_at"`
	ValidUntil time.Time `json:"valid_until"`
}

// NewQuote validates and constructs a Quote. Malformed upstream data is
// rejected here rather than trusted through the pipeline.
func NewQuote(inputMint, outputMint string, inAmount, outAmount uint64, slippageBps uint16, ttl time.Duration) (*Quote, error) {
	if inputMint == "" || outputMint == "" {
		return nil, fmt.Errorf("quote: input and output mints are required")
	}
	if inputMint == outputMint {
		return nil, fmt.Errorf("quote: input and output mints are identical")
	}
	if inAmount == 0 {
		return nil, fmt.Errorf("quote: in amount is zero")
	}
	if outAmount == 0 {
		return nil, fmt.Errorf("quote: out amount is zero")
	}
	now := time.Now()
	return &Quote{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: slippageBps,
		FetchedAt:   now,
		ValidUntil:  now.Add(ttl),
	}, nil
}

// Expired reports whether the quote's validity window has elapsed.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ValidUntil)
}
