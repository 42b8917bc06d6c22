// Package cache persists the promotion collection and the surfaced-promotion
// pointer to Redis so a process restart does not lose administrator-entered
// promotions before the next remote sync completes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cowema/promotion-engine/internal/model"
)

// Fixed namespace keys for the durable snapshot.
const (
	collectionKey = "cowema:promotions:collection"
	surfacedKey   = "cowema:promotions:surfaced"
)

// RedisClient defines the Redis operations needed by the snapshot cache.
// Implemented by *redis.Client; mocked in tests.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Snapshot stores the promotion state as JSON under fixed keys.
type Snapshot struct {
	client RedisClient
}

// NewSnapshot creates a Snapshot backed by the given Redis client.
func NewSnapshot(client RedisClient) *Snapshot {
	return &Snapshot{client: client}
}

// SaveCollection replaces the persisted promotion collection.
func (s *Snapshot) SaveCollection(ctx context.Context, promotions []model.Promotion) error {
	b, err := json.Marshal(promotions)
	if err != nil {
		return fmt.Errorf("marshal promotion collection: %w", err)
	}
	if err := s.client.Set(ctx, collectionKey, b, 0).Err(); err != nil {
		return fmt.Errorf("save promotion collection: %w", err)
	}
	return nil
}

// LoadCollection returns the persisted collection, or nil when no snapshot
// exists yet.
func (s *Snapshot) LoadCollection(ctx context.Context) ([]model.Promotion, error) {
	b, err := s.client.Get(ctx, collectionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load promotion collection: %w", err)
	}

	var promotions []model.Promotion
	if err := json.Unmarshal(b, &promotions); err != nil {
		return nil, fmt.Errorf("unmarshal promotion collection: %w", err)
	}
	return promotions, nil
}

// SaveSurfaced persists the surfaced pointer; nil clears it.
func (s *Snapshot) SaveSurfaced(ctx context.Context, p *model.Promotion) error {
	if p == nil {
		if err := s.client.Del(ctx, surfacedKey).Err(); err != nil {
			return fmt.Errorf("clear surfaced promotion: %w", err)
		}
		return nil
	}

	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal surfaced promotion: %w", err)
	}
	if err := s.client.Set(ctx, surfacedKey, b, 0).Err(); err != nil {
		return fmt.Errorf("save surfaced promotion: %w", err)
	}
	return nil
}

// LoadSurfaced returns the persisted surfaced promotion, or nil when none is
// set.
func (s *Snapshot) LoadSurfaced(ctx context.Context) (*model.Promotion, error) {
	b, err := s.client.Get(ctx, surfacedKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load surfaced promotion: %w", err)
	}

	var p model.Promotion
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("unmarshal surfaced promotion: %w", err)
	}
	return &p, nil
}
