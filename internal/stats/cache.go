package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const overviewKey = "stats:overview"

// Cache wraps Redis-based caching for the dashboard overview. A nil cache or
// an unreachable Redis degrades to calling the loader directly so the
// endpoint keeps working without the cache tier.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// FetchOverview loads the cached overview or populates it using the loader.
func (c *Cache) FetchOverview(ctx context.Context, loader func(context.Context) (*Overview, error)) (*Overview, error) {
	if loader == nil {
		return nil, errors.New("stats: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	raw, err := c.client.Get(ctx, overviewKey).Bytes()
	if err == nil {
		var cached Overview
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	} else if err != redis.Nil {
		// Redis outage: fall through to a live load.
		return loader(ctx)
	}

	overview, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, overview)
	return overview, nil
}

// Store writes a freshly computed overview, replacing any cached value. Used
// by the warmup job.
func (c *Cache) Store(ctx context.Context, overview *Overview) {
	if c == nil || c.client == nil || overview == nil {
		return
	}
	c.store(ctx, overview)
}

func (c *Cache) store(ctx context.Context, overview *Overview) {
	payload, err := json.Marshal(overview)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, overviewKey, payload, c.ttl).Err()
}
