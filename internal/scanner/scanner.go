package scanner

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
)

// Scanner is one opportunity-hunting strategy. Periodic strategies do their
// work inside Scan; the event-driven variant buffers results from its
// listener and drains the buffer when polled, so the orchestrator never needs
// to distinguish the two kinds.
type Scanner interface {
	Name() string
	Interval() time.Duration
	Scan(ctx context.Context) ([]*models.Opportunity, error)
}

// QuoteSource prices a single swap leg. Satisfied by the jupiter client;
// tests substitute a scripted source.
type QuoteSource interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, maxSlippageBps uint16) (*models.Quote, error)
}

// PriceSource converts base-asset amounts into the fiat reference unit.
type PriceSource interface {
	SOLPrice(ctx context.Context) float64
}
