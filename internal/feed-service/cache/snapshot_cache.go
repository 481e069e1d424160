// Package cache reads the match snapshots that the match-service
// leaves in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func key(matchID string) string { return "match:snapshot:" + matchID }

// Get returns the cached snapshot for a match. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, matchID string) (json.RawMessage, bool, error) {
	b, err := c.R.Get(ctx, key(matchID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(b), true, nil
}

// Set refills the cache after a read-through to the match-service.
func (c *Cache) Set(ctx context.Context, matchID string, snapshot []byte, ttl time.Duration) error {
	return c.R.Set(ctx, key(matchID), snapshot, ttl).Err()
}
