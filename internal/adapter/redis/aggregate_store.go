// Package redis implements the aggregate store, dedup ledger, and
// produced-state read contracts on top of Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// AggregateStore implements domain.AggregateStore. Every method maps to
// a single Redis command (the list push/trim pair runs pipelined), so
// atomicity per operation is Redis's own guarantee and the engine adds
// no locking of its own.
type AggregateStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewAggregateStore creates a Redis-backed aggregate store.
func NewAggregateStore(client *redis.Client, logger *slog.Logger) *AggregateStore {
	return &AggregateStore{
		client: client,
		logger: logger.With("component", "aggregate_store"),
	}
}

func (s *AggregateStore) IncrSortedScore(ctx context.Context, set, member string, delta int64) (int64, error) {
	score, err := s.client.ZIncrBy(ctx, set, float64(delta), member).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to ZINCRBY %s: %w", set, err)
	}
	return int64(score), nil
}

func (s *AggregateStore) IncrHashField(ctx context.Context, key, field string, delta int64) (int64, error) {
	v, err := s.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to HINCRBY %s.%s: %w", key, field, err)
	}
	return v, nil
}

func (s *AggregateStore) SetHashFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	set, err := s.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("failed to HSETNX %s.%s: %w", key, field, err)
	}
	return set, nil
}

func (s *AggregateStore) SetHashField(ctx context.Context, key, field, value string) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to HSET %s.%s: %w", key, field, err)
	}
	return nil
}

// PushFrontAndTrim pushes then trims. The two commands are pipelined for
// a single round trip but are individually atomic; the list may briefly
// exceed maxLen between them, never after.
func (s *AggregateStore) PushFrontAndTrim(ctx context.Context, listKey, value string, maxLen int64) error {
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, listKey, value)
	pipe.LTrim(ctx, listKey, 0, maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to LPUSH/LTRIM %s: %w", listKey, err)
	}
	return nil
}

func (s *AggregateStore) SortedRank(ctx context.Context, set, member string) (int64, bool, error) {
	rank, err := s.client.ZRevRank(ctx, set, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to ZREVRANK %s: %w", set, err)
	}
	return rank, true, nil
}
