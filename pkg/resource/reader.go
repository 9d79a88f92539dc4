// Package resource reads backend resources through the response cache.
//
// A Reader binds one cache namespace to the API client. Every cached read
// runs as
//
//	cache.Do(key, policy TTL) -> client.Retry -> GET -> envelope.Unwrap
//
// so concurrent readers of one key share a single retried request and only
// successful payloads are stored.
package resource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/Sternrassler/course-client/pkg/cache"
	"github.com/Sternrassler/course-client/pkg/client"
	"github.com/Sternrassler/course-client/pkg/envelope"
	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/Sternrassler/course-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// Getter performs a GET request and returns the response body.
// *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Config holds reader configuration.
type Config struct {
	// Namespace prefixes every cache key of the reader (e.g., "blog")
	Namespace string

	// Policy maps resource kinds to TTLs
	Policy cache.Policy

	// Retry applies to every request issued by the reader
	Retry client.RetryConfig
}

// DefaultConfig returns the default configuration for namespace.
func DefaultConfig(namespace string) Config {
	return Config{
		Namespace: namespace,
		Policy:    cache.DefaultPolicy(),
		Retry:     client.DefaultRetryConfig(),
	}
}

// Reader reads resources of one namespace.
type Reader struct {
	api    Getter
	cache  *cache.Cache
	config Config
	logger zerolog.Logger

	// generation is part of every key; bumping it retires all keys at once
	generation atomic.Uint64
}

// NewReader creates a reader. It panics if api or c is nil.
func NewReader(api Getter, c *cache.Cache, config Config) (*Reader, error) {
	if api == nil || c == nil {
		panic("resource: api and cache are required")
	}
	if config.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if config.Policy == nil {
		config.Policy = cache.DefaultPolicy()
	}
	if err := config.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache policy: %w", err)
	}

	return &Reader{
		api:    api,
		cache:  c,
		config: config,
		logger: logging.NewLogger(logging.ComponentResource).With().Str("namespace", config.Namespace).Logger(),
	}, nil
}

// Key returns the cache key for a GET of endpoint with query.
func (r *Reader) Key(endpoint string, query url.Values) string {
	return cache.CacheKey{
		Namespace:   r.config.Namespace + "." + strconv.FormatUint(r.generation.Load(), 10),
		Endpoint:    endpoint,
		QueryParams: query,
	}.String()
}

// Read returns the unwrapped payload of endpoint, cached for the TTL of kind.
func (r *Reader) Read(ctx context.Context, kind cache.ResourceKind, endpoint string, query url.Values) ([]byte, error) {
	key := r.Key(endpoint, query)
	return r.cache.Do(ctx, key, r.config.Policy.TTL(kind), func(ctx context.Context) ([]byte, error) {
		return r.Fetch(ctx, endpoint, query)
	})
}

// Fetch requests endpoint with retry, bypassing the cache.
func (r *Reader) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	return client.Retry(ctx, r.config.Retry, func(ctx context.Context) ([]byte, error) {
		body, err := r.api.Get(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}
		return envelope.Unwrap(body), nil
	})
}

// Invalidate deletes the cached query-less entries of endpoints and retires
// every other key of the namespace.
func (r *Reader) Invalidate(ctx context.Context, endpoints ...string) error {
	keys := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		keys = append(keys, r.Key(endpoint, nil))
	}

	generation := r.generation.Add(1)
	r.logger.Debug().
		Strs("endpoints", endpoints).
		Uint64("generation", generation).
		Msg("Invalidated namespace")

	return r.cache.Invalidate(ctx, keys...)
}

// ReadJSON reads endpoint and decodes the payload into T.
func ReadJSON[T any](ctx context.Context, r *Reader, kind cache.ResourceKind, endpoint string, query url.Values) (T, error) {
	var out T

	body, err := r.Read(ctx, kind, endpoint, query)
	if err != nil {
		return out, err
	}
	if err := envelope.UnwrapInto(body, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return out, nil
}

// ReadPage reads a paged endpoint and normalizes the result.
func ReadPage[T any](ctx context.Context, r *Reader, kind cache.ResourceKind, endpoint string, query url.Values, page, pageSize int) (pagination.PagedResult[T], error) {
	body, err := r.Read(ctx, kind, endpoint, query)
	if err != nil {
		return pagination.PagedResult[T]{}, err
	}

	result, err := pagination.Decode[T](body, page, pageSize)
	if err != nil {
		return pagination.PagedResult[T]{}, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return result, nil
}

// ReadList reads an endpoint answering with a list, either a bare array or
// a paged object, and returns its items.
func ReadList[T any](ctx context.Context, r *Reader, kind cache.ResourceKind, endpoint string, query url.Values) ([]T, error) {
	result, err := ReadPage[T](ctx, r, kind, endpoint, query, 1, pagination.MaxPageSize)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// PageFetcher returns a pagination.FetchFunc reading endpoint through the
// cache, for use with a Pager.
func (r *Reader) PageFetcher(kind cache.ResourceKind, endpoint string) pagination.FetchFunc {
	return func(ctx context.Context, query url.Values) ([]byte, error) {
		return r.Read(ctx, kind, endpoint, query)
	}
}
