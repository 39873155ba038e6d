package ledger

import (
	"context"
	"io"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
)

// TradeLedger defines the interface for durable trade accounting
type TradeLedger interface {
	// RecordTrade inserts the record of one execution attempt
	RecordTrade(ctx context.Context, record *models.TradeRecord) error

	// UpdateTrade overwrites the terminal fields of an existing record
	UpdateTrade(ctx context.Context, tradeID string, outcome, failureClass string, settledAt time.Time) error

	// RecordDailyPnL appends a realized P&L delta for the current day
	RecordDailyPnL(ctx context.Context, day time.Time, deltaSOL, deltaUSD float64) error

	// Ping checks if the ledger is reachable
	Ping(ctx context.Context) error

	// Close closes the ledger connection
	io.Closer
}
