package events

import (
	"context"
	"encoding/json"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBridge mirrors bus events onto Redis Pub/Sub channels so external
// dashboards can subscribe without touching the process.
type RedisBridge struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisBridge(addr string, logger *logrus.Logger) *RedisBridge {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisBridge{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: logger,
	}
}

// Run consumes events from the bus until ctx is cancelled or the channel
// closes. Publish failures are logged and skipped; the bridge never pushes
// back on the bus.
func (r *RedisBridge) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			r.publish(ctx, evt)
		}
	}
}

func (r *RedisBridge) publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		r.logger.WithError(err).Warn("event marshal failed")
		return
	}

	channels := []string{constants.PubSubChannelEvents}
	if evt.Category == CategoryTrade {
		channels = append(channels, constants.PubSubChannelTrades)
	}

	pipe := r.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Warn("event publish failed")
	}
}

func (r *RedisBridge) Close() error {
	return r.client.Close()
}
