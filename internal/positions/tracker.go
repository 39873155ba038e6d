package positions

import (
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// Tracker keeps the in-memory record of capital committed per trade. All
// methods are safe for concurrent use; OpenExposure is the hot-path read the
// orchestrator consults before reserving capital.
type Tracker struct {
	mu     sync.Mutex
	open   map[string]*models.Position
	closed []*models.ClosedPosition
	logger *logrus.Logger

	maxClosed int
}

func NewTracker(logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		open:      make(map[string]*models.Position),
		logger:    logger,
		maxClosed: constants.MaxClosedPositions,
	}
}

// Open records a new position. A second open for an existing trade ID is a
// warning no-op, never an overwrite.
func (t *Tracker) Open(tradeID, strategy, asset string, amountSOL, entryPrice float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.open[tradeID]; exists {
		t.logger.WithFields(logrus.Fields{
			"trade_id": tradeID,
			"strategy": strategy,
		}).Warn("duplicate position open ignored")
		return
	}

	t.open[tradeID] = &models.Position{
		TradeID:    tradeID,
		Strategy:   strategy,
		Asset:      asset,
		AmountSOL:  amountSOL,
		EntryPrice: entryPrice,
		OpenedAt:   time.Now(),
	}

	t.logger.WithFields(logrus.Fields{
		"trade_id":   tradeID,
		"strategy":   strategy,
		"asset":      asset,
		"amount_sol": amountSOL,
	}).Info("position opened")
}

// Close settles a position and returns the closed record, or nil if the trade
// ID is unknown. Realized P&L is exit amount minus entry amount in SOL.
func (t *Tracker) Close(tradeID string, exitAmountSOL, exitPrice float64) *models.ClosedPosition {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, exists := t.open[tradeID]
	if !exists {
		t.logger.WithField("trade_id", tradeID).Warn("close for unknown position")
		return nil
	}
	delete(t.open, tradeID)

	now := time.Now()
	closed := &models.ClosedPosition{
		Position:      *pos,
		ExitAmountSOL: exitAmountSOL,
		ExitPrice:     exitPrice,
		RealizedPnL:   exitAmountSOL - pos.AmountSOL,
		ClosedAt:      now,
		HoldDuration:  now.Sub(pos.OpenedAt),
	}

	t.closed = append(t.closed, closed)
	if len(t.closed) > t.maxClosed {
		t.closed = t.closed[len(t.closed)-t.maxClosed:]
	}

	t.logger.WithFields(logrus.Fields{
		"trade_id":     tradeID,
		"realized_pnl": closed.RealizedPnL,
		"held":         closed.HoldDuration.String(),
	}).Info("position closed")

	return closed
}

// Get returns the open position for a trade ID, or nil.
func (t *Tracker) Get(tradeID string) *models.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, exists := t.open[tradeID]
	if !exists {
		return nil
	}
	cp := *pos
	return &cp
}

// OpenExposure returns total SOL committed across open positions.
func (t *Tracker) OpenExposure() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total float64
	for _, pos := range t.open {
		total += pos.AmountSOL
	}
	return total
}

// OpenCount returns the number of open positions.
func (t *Tracker) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Stale returns open positions older than maxAge, for detecting trades that
// never settled.
func (t *Tracker) Stale(maxAge time.Duration) []*models.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var stale []*models.Position
	for _, pos := range t.open {
		if pos.OpenedAt.Before(cutoff) {
			cp := *pos
			stale = append(stale, &cp)
		}
	}
	return stale
}

// Snapshot returns copies of every open position, for the status API.
func (t *Tracker) Snapshot() []*models.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*models.Position, 0, len(t.open))
	for _, pos := range t.open {
		cp := *pos
		out = append(out, &cp)
	}
	return out
}

// ClosedHistory returns up to limit most recent closed positions, newest
// last.
func (t *Tracker) ClosedHistory(limit int) []*models.ClosedPosition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || limit > len(t.closed) {
		limit = len(t.closed)
	}
	out := make([]*models.ClosedPosition, limit)
	copy(out, t.closed[len(t.closed)-limit:])
	return out
}

// RealizedPnL sums realized profit and loss over retained closed positions.
func (t *Tracker) RealizedPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total float64
	for _, c := range t.closed {
		total += c.RealizedPnL
	}
	return total
}
