// Package cache stores search-stage results in Redis so repeated queries skip
// the upstream provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "exsearch:hits:"
	defaultTTL = 15 * time.Minute
)

// StageCache caches raw hits per (stage, shaped query text).
type StageCache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, stage domain.Stage, text string) (hits []domain.RawHit, ok bool, err error)
	Set(ctx context.Context, stage domain.Stage, text string, hits []domain.RawHit) error
}

// RedisStageCache is a StageCache backed by go-redis.
type RedisStageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStageCache creates a cache with the given entry TTL.
func NewRedisStageCache(client *redis.Client, ttl time.Duration) *RedisStageCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStageCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a stage query. Text is case- and
// whitespace-folded before hashing.
func Key(stage domain.Stage, text string) string {
	folded := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(folded))
	return keyPrefix + string(stage) + ":" + hex.EncodeToString(sum[:])
}

func (c *RedisStageCache) Get(ctx context.Context, stage domain.Stage, text string) ([]domain.RawHit, bool, error) {
	data, err := c.client.Get(ctx, Key(stage, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get stage hits: %w", err)
	}

	var hits []domain.RawHit
	if unmarshalErr := json.Unmarshal(data, &hits); unmarshalErr != nil {
		return nil, false, fmt.Errorf("failed to unmarshal stage hits: %w", unmarshalErr)
	}
	return hits, true, nil
}

func (c *RedisStageCache) Set(ctx context.Context, stage domain.Stage, text string, hits []domain.RawHit) error {
	if hits == nil {
		hits = []domain.RawHit{}
	}
	data, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to marshal stage hits: %w", err)
	}
	if setErr := c.client.Set(ctx, Key(stage, text), data, c.ttl).Err(); setErr != nil {
		return fmt.Errorf("failed to set stage hits: %w", setErr)
	}
	return nil
}

// Nop never hits and stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, domain.Stage, string) ([]domain.RawHit, bool, error) {
	return nil, false, nil
}

func (Nop) Set(context.Context, domain.Stage, string, []domain.RawHit) error { return nil }
