package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps rolling windows of recent opportunities and trades for the
// status API and external dashboards.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
	}
}

func (r *RedisCache) AddRecentOpportunity(ctx context.Context, opp *models.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentOpportunities, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentOpportunities, 0, constants.MaxRecentOpportunities-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisCache) GetRecentOpportunities(ctx context.Context, limit int64) ([]*models.Opportunity, error) {
	if limit <= 0 || limit > constants.MaxRecentOpportunities {
		limit = constants.MaxRecentOpportunities
	}

	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentOpportunities, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent opportunities: %w", err)
	}

	opps := make([]*models.Opportunity, 0, len(raw))
	for _, item := range raw {
		var opp models.Opportunity
		if err := json.Unmarshal([]byte(item), &opp); err != nil {
			continue
		}
		opps = append(opps, &opp)
	}
	return opps, nil
}

func (r *RedisCache) AddRecentTrade(ctx context.Context, record *models.TradeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentTrades, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentTrades, 0, constants.MaxRecentTrades-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisCache) GetRecentTrades(ctx context.Context, limit int64) ([]*models.TradeRecord, error) {
	if limit <= 0 || limit > constants.MaxRecentTrades {
		limit = constants.MaxRecentTrades
	}

	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentTrades, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent trades: %w", err)
	}

	trades := make([]*models.TradeRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.TradeRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		trades = append(trades, &rec)
	}
	return trades, nil
}

// UpdateSOLPrice mirrors the latest reference price so dashboards read the
// same number the engine trades on.
func (r *RedisCache) UpdateSOLPrice(ctx context.Context, price float64) error {
	return r.client.Set(ctx, constants.RedisKeySOLPrice, price, 0).Err()
}

func (r *RedisCache) GetSOLPrice(ctx context.Context) (float64, error) {
	return r.client.Get(ctx, constants.RedisKeySOLPrice).Float64()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
