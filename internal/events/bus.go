package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event categories published by the engine.
const (
	CategoryOpportunity = "opportunity_found"
	CategoryTrade       = "trade_executed"
	CategoryPosition    = "position"
	CategoryBreaker     = "circuit_breaker"
	CategoryFailover    = "rpc_failover"
)

// Event is one lifecycle notification. Consumers receive a copy and must not
// feed anything back into the engine's control flow.
type Event struct {
	Category  string         `json:"category"`
	Level     string         `json:"level"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bus fans lifecycle events out to subscribers. Publication is
// fire-and-forget: each subscriber has a bounded buffer and events are
// dropped, not queued unboundedly, when a subscriber falls behind.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	bufSize int
	logger  *logrus.Logger

	dropped uint64
}

func NewBus(bufSize int, logger *logrus.Logger) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		subs:    make(map[int]chan Event),
		bufSize: bufSize,
		logger:  logger,
	}
}

// Publish delivers the event to every subscriber without blocking. A full
// subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(category, level string, fields map[string]any) {
	evt := Event{
		Category:  category,
		Level:     level,
		Fields:    fields,
		Timestamp: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped++
			b.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"category":   category,
			}).Debug("event dropped: subscriber buffer full")
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel closes on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufSize)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Dropped reports how many events were discarded under backpressure.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
