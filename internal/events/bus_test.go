package events

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(bufSize int) *Bus {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewBus(bufSize, logger)
}

func TestPublish_ReachesAllSubscribers(t *testing.T) {
	bus := newTestBus(4)
	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(CategoryOpportunity, "info", map[string]any{"id": "opp-1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, CategoryOpportunity, evt.Category)
			assert.Equal(t, "opp-1", evt.Fields["id"])
		case <-time.After(time.Second):
			t.Fatal("subscriber never received event")
		}
	}
}

func TestPublish_DropsUnderBackpressure(t *testing.T) {
	bus := newTestBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	// Nobody drains ch; second publish must not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(CategoryTrade, "info", nil)
		bus.Publish(CategoryTrade, "info", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.EqualValues(t, 1, bus.Dropped())
	require.Len(t, ch, 1)
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	bus := newTestBus(4)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // second call is a no-op

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe reaches nobody and must not panic.
	bus.Publish(CategoryBreaker, "critical", nil)
}
