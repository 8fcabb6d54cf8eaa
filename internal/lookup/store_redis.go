package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lookup:titles:"

// RedisStore is the production persistent cache layer. Entries expire via
// Redis TTL so stale title sets never need explicit invalidation.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(typ ResourceType) string {
	return redisKeyPrefix + string(typ)
}

func (s *RedisStore) Get(ctx context.Context, typ ResourceType) (Titles, error) {
	raw, err := s.client.Get(ctx, s.key(typ)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key(typ), err)
	}
	var titles Titles
	if err := json.Unmarshal([]byte(raw), &titles); err != nil {
		return nil, fmt.Errorf("decode cached titles %s: %w", s.key(typ), err)
	}
	return titles, nil
}

func (s *RedisStore) Set(ctx context.Context, typ ResourceType, titles Titles, ttl time.Duration) error {
	raw, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("encode titles %s: %w", s.key(typ), err)
	}
	if err := s.client.Set(ctx, s.key(typ), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(typ), err)
	}
	return nil
}
