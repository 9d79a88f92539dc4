package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores entries in Redis with native key expiry.
type RedisStore struct {
	redis redis.UniversalClient
	codec Codec
}

// NewRedisStore creates a Redis-backed store. A nil codec selects JSONCodec.
func NewRedisStore(redisClient redis.UniversalClient, codec Codec) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	return &RedisStore{
		redis: redisClient,
		codec: codec,
	}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(s.Name(), "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := s.codec.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(s.Name(), "get").Inc()
		// Corrupted entries are dropped so the next write can replace them
		_ = s.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set implements Store. The Redis key expires together with the entry;
// entries that are already stale are not written.
func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.Lifetime()
	if ttl <= 0 {
		return nil
	}

	data, err := s.codec.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(s.Name(), "set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues(s.Name(), "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues(s.Name(), "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
