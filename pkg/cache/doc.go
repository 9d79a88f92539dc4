// Package cache provides the request cache used by the course platform
// client.
//
// A Cache wraps a remote read with three behaviors:
//
//   - Fresh entries (now < ExpiresAt) are served without calling the fetcher
//   - Concurrent callers for the same key share one in-flight fetch
//   - Failed fetches are never cached, so the next call retries immediately
//
// Retries are composed into the fetcher (see client.Retry), so they happen
// inside the single in-flight fetch and waiters only see the final outcome.
//
// # Basic Usage
//
//	c := cache.New(cache.NewMemoryStore(1024))
//
//	key := cache.CacheKey{
//		Namespace:   "blog",
//		Endpoint:    "/api/blog/posts",
//		QueryParams: url.Values{"page": []string{"1"}},
//	}
//
//	body, err := c.Do(ctx, key.String(), cache.DefaultPolicy().TTL(cache.KindList),
//		func(ctx context.Context) ([]byte, error) {
//			return client.Retry(ctx, client.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
//				return api.Get(ctx, "/api/blog/posts", key.QueryParams)
//			})
//		})
//
// # Stores
//
//   - MemoryStore: process-local, bounded by an LRU size cap
//   - RedisStore: shared across processes, native key expiry, JSON or msgpack codec
//   - RistrettoStore: cost-bounded memory store with admission control
//
// # TTL Policy
//
// DefaultPolicy maps resource kinds to TTLs: lists 120s, details 300s,
// taxonomy 900s, related content 120s, navigation 120s, search 60s.
//
// # Metrics
//
//   - course_cache_hits_total{store} - Fresh hits
//   - course_cache_misses_total{store} - Misses (absent or stale)
//   - course_cache_shared_fetches_total - Results delivered to joined callers
//   - course_cache_fetch_errors_total - Fetches that failed behind the cache
//   - course_cache_errors_total{store,operation} - Store errors
//   - course_cache_evictions_total - Memory store LRU evictions
//   - course_cache_entries - Memory store size
package cache
