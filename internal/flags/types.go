package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Well-known operator flags. The engine polls these; operators flip them from
// outside the process via Redis or the HTTP API.
const (
	KeyTradingHalt  = "trading.halt"          // kill switch: stop opening new positions
	KeyBreakerReset = "trading.breaker.reset" // one-shot: clear a tripped circuit breaker
	KeyCyclic       = "strategy.cyclic"
	KeyTriangular   = "strategy.triangular"
	KeyFrontrun     = "strategy.frontrun"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
