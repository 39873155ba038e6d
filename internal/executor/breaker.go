package executor

import (
	"sync"
	"time"
)

// Breaker halts new trade attempts after a run of consecutive failures.
// Tripping is edge-triggered: RecordFailure reports true exactly once per
// trip so the caller raises a single alert, not one per refusal. The breaker
// re-opens when the cooldown elapses or on an explicit Reset.
type Breaker struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	consecutive int
	tripped     bool
	trippedAt   time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// RecordFailure bumps the consecutive-failure counter and reports whether
// this failure tripped the breaker.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive++
	if !b.tripped && b.consecutive >= b.threshold {
		b.tripped = true
		b.trippedAt = time.Now()
		return true
	}
	return false
}

// RecordSuccess clears the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
}

// Allow reports whether new attempts may proceed. A tripped breaker re-opens
// once the cooldown has elapsed.
func (b *Breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tripped {
		return true
	}
	if now.Sub(b.trippedAt) >= b.cooldown {
		b.tripped = false
		b.consecutive = 0
		return true
	}
	return false
}

// Reset re-opens the breaker immediately. Driven by the operator flag.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = false
	b.consecutive = 0
}

// Tripped reports the current state without side effects.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// ConsecutiveFailures returns the current failure run length.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutive
}
