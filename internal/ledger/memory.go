package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
)

// MemoryLedger is an in-process TradeLedger used when no ClickHouse address
// is configured, and by tests.
type MemoryLedger struct {
	mu     sync.Mutex
	trades map[string]*models.TradeRecord
	pnl    map[string]float64 // day -> SOL delta sum
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		trades: make(map[string]*models.TradeRecord),
		pnl:    make(map[string]float64),
	}
}

func (m *MemoryLedger) RecordTrade(_ context.Context, record *models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.trades[record.TradeID] = &cp
	return nil
}

func (m *MemoryLedger) UpdateTrade(_ context.Context, tradeID string, outcome, failureClass string, settledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.trades[tradeID]; ok {
		rec.Outcome = outcome
		rec.FailureClass = failureClass
		rec.SettledAt = settledAt
	}
	return nil
}

func (m *MemoryLedger) RecordDailyPnL(_ context.Context, day time.Time, deltaSOL, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pnl[day.Format("2006-01-02")] += deltaSOL
	return nil
}

// Trade returns the stored record for a trade ID, or nil. Test helper.
func (m *MemoryLedger) Trade(tradeID string) *models.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.trades[tradeID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// DailyPnL returns the accumulated SOL delta for a day. Test helper.
func (m *MemoryLedger) DailyPnL(day time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pnl[day.Format("2006-01-02")]
}

func (m *MemoryLedger) Ping(context.Context) error { return nil }
func (m *MemoryLedger) Close() error               { return nil }
