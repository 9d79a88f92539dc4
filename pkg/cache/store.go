package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a keyed entry store used by Cache.
// Implementations must be safe for concurrent use.
type Store interface {
	// Name identifies the store in metrics and logs.
	Name() string

	// Get returns the entry for key or ErrCacheMiss.
	// Stores may return entries that are already stale; Cache checks freshness.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores the entry, replacing any previous entry for key.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
