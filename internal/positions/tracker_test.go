package positions

import (
	"fmt"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() *Tracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTracker(logger)
}

func TestOpen_DuplicateIsNoOp(t *testing.T) {
	tr := newTestTracker()

	tr.Open("trade-1", models.StrategyCyclic, "SOL", 0.5, 150.0)
	tr.Open("trade-1", models.StrategyCyclic, "SOL", 9.9, 150.0)

	require.Equal(t, 1, tr.OpenCount())
	pos := tr.Get("trade-1")
	require.NotNil(t, pos)
	assert.Equal(t, 0.5, pos.AmountSOL)
}

func TestClose_RoundTrip(t *testing.T) {
	tr := newTestTracker()
	tr.Open("trade-1", models.StrategyTriangular, "SOL", 0.5, 150.0)

	closed := tr.Close("trade-1", 0.52, 151.0)
	require.NotNil(t, closed)
	assert.InDelta(t, 0.02, closed.RealizedPnL, 1e-12)
	assert.Equal(t, 0.52, closed.ExitAmountSOL)
	assert.Nil(t, tr.Get("trade-1"))
	assert.Zero(t, tr.OpenCount())
}

func TestClose_UnknownReturnsNil(t *testing.T) {
	tr := newTestTracker()
	assert.Nil(t, tr.Close("nope", 1.0, 150.0))
}

func TestOpenExposure_SumsOpenPositions(t *testing.T) {
	tr := newTestTracker()
	tr.Open("a", models.StrategyCyclic, "SOL", 0.25, 150.0)
	tr.Open("b", models.StrategyTriangular, "SOL", 0.5, 150.0)

	assert.InDelta(t, 0.75, tr.OpenExposure(), 1e-12)

	tr.Close("a", 0.26, 150.0)
	assert.InDelta(t, 0.5, tr.OpenExposure(), 1e-12)
}

func TestStale_FindsOldPositions(t *testing.T) {
	tr := newTestTracker()
	tr.Open("old", models.StrategyCyclic, "SOL", 0.1, 150.0)
	tr.open["old"].OpenedAt = time.Now().Add(-10 * time.Minute)
	tr.Open("fresh", models.StrategyCyclic, "SOL", 0.1, 150.0)

	stale := tr.Stale(5 * time.Minute)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].TradeID)
}

func TestClosedHistory_CapIsEnforced(t *testing.T) {
	tr := newTestTracker()
	tr.maxClosed = 3

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("trade-%d", i)
		tr.Open(id, models.StrategyCyclic, "SOL", 0.1, 150.0)
		tr.Close(id, 0.11, 150.0)
	}

	history := tr.ClosedHistory(0)
	require.Len(t, history, 3)
	assert.Equal(t, "trade-2", history[0].TradeID)
	assert.Equal(t, "trade-4", history[2].TradeID)
}

func TestRealizedPnL_SumsHistory(t *testing.T) {
	tr := newTestTracker()

	tr.Open("win", models.StrategyCyclic, "SOL", 0.1, 150.0)
	tr.Close("win", 0.12, 150.0)
	tr.Open("lose", models.StrategyCyclic, "SOL", 0.1, 150.0)
	tr.Close("lose", 0.09, 150.0)

	assert.InDelta(t, 0.01, tr.RealizedPnL(), 1e-12)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	tr := newTestTracker()
	tr.Open("a", models.StrategyCyclic, "SOL", 0.1, 150.0)

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	snap[0].AmountSOL = 99

	assert.Equal(t, 0.1, tr.Get("a").AmountSOL)
}
