package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Persistence saves and loads cart contents for a given key. It is injected
// into the HTTP layer so cart logic stays testable without a storage backend.
type Persistence interface {
	Load(ctx context.Context, key string) ([]Item, error)
	Save(ctx context.Context, key string, items []Item) error
}

// NoopPersistence discards all writes and loads empty carts. Used in
// non-interactive contexts (tests, CLI tooling).
type NoopPersistence struct{}

func (NoopPersistence) Load(ctx context.Context, key string) ([]Item, error) {
	return nil, nil
}

func (NoopPersistence) Save(ctx context.Context, key string, items []Item) error {
	return nil
}

// RedisPersistence stores carts as JSON blobs with a TTL.
type RedisPersistence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersistence creates a Redis-backed cart store. A zero ttl defaults
// to 7 days.
func NewRedisPersistence(client *redis.Client, ttl time.Duration) *RedisPersistence {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisPersistence{client: client, ttl: ttl}
}

func cartKey(key string) string {
	return "cart:" + key
}

func (p *RedisPersistence) Load(ctx context.Context, key string) ([]Item, error) {
	raw, err := p.client.Get(ctx, cartKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *RedisPersistence) Save(ctx context.Context, key string, items []Item) error {
	if len(items) == 0 {
		return p.client.Del(ctx, cartKey(key)).Err()
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, cartKey(key), raw, p.ttl).Err()
}
