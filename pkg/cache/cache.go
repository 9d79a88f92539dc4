package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher produces the raw JSON payload for a cache key.
type Fetcher func(ctx context.Context) ([]byte, error)

// Cache combines a TTL store with in-flight request de-duplication.
// The zero value is not usable; construct with New.
type Cache struct {
	store  Store
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache over the given store.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		panic("cache store cannot be nil")
	}

	c := &Cache{
		store:  store,
		now:    time.Now,
		logger: logging.NewLogger(logging.ComponentCache),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

// Do returns the payload for key. A fresh entry is returned without calling
// fetch. Otherwise callers for the same key share a single in-flight fetch;
// on success its value is stored for ttl before the in-flight registration
// is released, on failure nothing is stored and every waiter receives the
// same error.
//
// The shared fetch runs detached from the caller's cancellation; a caller
// whose context ends stops waiting and gets ctx.Err(). The returned slice is
// shared between callers and must not be modified.
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) ([]byte, error) {
	if value, ok := c.lookup(ctx, key); ok {
		CacheHits.WithLabelValues(c.store.Name()).Inc()
		c.logger.Debug().Str("key", key).Bool("cache_hit", true).Msg("Cache hit")
		return value, nil
	}
	CacheMisses.WithLabelValues(c.store.Name()).Inc()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that settled after our lookup has already stored its value
		if value, ok := c.lookup(fetchCtx, key); ok {
			return value, nil
		}

		c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Fetching")
		value, err := fetch(fetchCtx)
		if err != nil {
			FetchErrors.Inc()
			return nil, err
		}

		c.put(fetchCtx, key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			SharedFetches.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes the given keys so the next Do refetches them.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		c.group.Forget(key)
		if err := c.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lookup returns the value for key if a fresh entry exists.
// Store failures degrade to a miss.
func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		}
		return nil, false
	}
	if entry.IsExpired(c.now()) {
		return nil, false
	}
	return entry.Value, true
}

func (c *Cache) put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	if err := c.store.Set(ctx, key, newEntry(value, c.now(), ttl)); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached response")
}

// GetJSON runs Do and decodes the payload into T.
func GetJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch Fetcher) (T, error) {
	var out T

	data, err := c.Do(ctx, key, ttl, fetch)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}
