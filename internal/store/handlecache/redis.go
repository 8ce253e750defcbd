package handlecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

// DefaultRedisKey holds the cache document when no key is configured.
const DefaultRedisKey = "postmatch:handle_cache"

var _ store.HandleCacheStore = (*RedisStore)(nil)

// RedisStore keeps the cache as a JSON string under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]models.HandleCacheEntry, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]models.HandleCacheEntry{}, nil
		}
		return nil, fmt.Errorf("%w: redis get %s: %v", store.ErrCacheUnavailable, s.key, err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, entries map[string]models.HandleCacheEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode handle cache: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
