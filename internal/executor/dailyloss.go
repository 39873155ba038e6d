package executor

import (
	"sync"
	"time"
)

// DailyLossGate halts new submissions for the remainder of the day once
// cumulative realized losses cross the configured ceiling. The counter resets
// at the date boundary.
type DailyLossGate struct {
	mu       sync.Mutex
	limitSOL float64
	day      string
	lossSOL  float64
}

func NewDailyLossGate(limitSOL float64) *DailyLossGate {
	return &DailyLossGate{limitSOL: limitSOL}
}

// Record accumulates one realized P&L delta. Profits shrink the running loss
// but never below zero less than the day's actual net.
func (g *DailyLossGate) Record(now time.Time, pnlSOL float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(now)
	g.lossSOL -= pnlSOL
}

// Allow reports whether today's losses are still under the ceiling. A
// non-positive limit disables the gate.
func (g *DailyLossGate) Allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(now)
	if g.limitSOL <= 0 {
		return true
	}
	return g.lossSOL < g.limitSOL
}

// NetLossSOL returns today's accumulated loss (negative when net profitable).
func (g *DailyLossGate) NetLossSOL(now time.Time) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(now)
	return g.lossSOL
}

func (g *DailyLossGate) roll(now time.Time) {
	day := now.Format("2006-01-02")
	if day != g.day {
		g.day = day
		g.lossSOL = 0
	}
}
