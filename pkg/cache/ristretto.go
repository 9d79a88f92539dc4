package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// RistrettoConfig configures a RistrettoStore.
type RistrettoConfig struct {
	// NumCounters is the number of keys tracked for admission (~10x items)
	NumCounters int64

	// MaxCost is the total payload budget in bytes
	MaxCost int64

	// BufferItems is the Get buffer size per stripe (64 is recommended)
	BufferItems int64
}

// DefaultRistrettoConfig returns a configuration sized for ~10k entries
// and 64 MiB of payload.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// RistrettoStore is a cost-bounded memory store backed by dgraph-io/ristretto.
// Writes may be rejected by the admission policy under pressure; a rejected
// write behaves like a later miss.
type RistrettoStore struct {
	c *ristretto.Cache
}

// NewRistrettoStore creates a ristretto-backed store.
func NewRistrettoStore(cfg RistrettoConfig) (*RistrettoStore, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &RistrettoStore{c: c}, nil
}

// Name implements Store.
func (s *RistrettoStore) Name() string { return "ristretto" }

// Get implements Store.
func (s *RistrettoStore) Get(_ context.Context, key string) (*Entry, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}

	entry, ok := v.(Entry)
	if !ok {
		s.c.Del(key)
		return nil, ErrInvalidEntry
	}
	return &entry, nil
}

// Set implements Store. The write is flushed before returning so a
// following Get observes it.
func (s *RistrettoStore) Set(_ context.Context, key string, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}

	ttl := entry.Lifetime()
	if ttl <= 0 {
		return nil
	}

	cost := int64(len(entry.Value))
	if cost == 0 {
		cost = 1
	}

	s.c.SetWithTTL(key, *entry, cost, ttl)
	s.c.Wait()
	return nil
}

// Delete implements Store.
func (s *RistrettoStore) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

// Close releases the ristretto goroutines.
func (s *RistrettoStore) Close() {
	s.c.Close()
}
