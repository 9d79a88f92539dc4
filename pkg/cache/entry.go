package cache

import (
	"time"
)

// Entry is a cached response payload.
type Entry struct {
	// Value is the raw JSON payload returned by the fetcher
	Value []byte `json:"value" msgpack:"value"`

	// CachedAt is when the payload was stored
	CachedAt time.Time `json:"cached_at" msgpack:"cached_at"`

	// ExpiresAt is when the entry becomes stale
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`
}

// newEntry builds an entry that stays fresh for ttl after now.
func newEntry(value []byte, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Value:     value,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the entry is stale at the given instant.
// An entry is fresh only while now < ExpiresAt.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time left until expiration at the given instant.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Lifetime is how long a store should keep the entry. It is measured from
// CachedAt so stores agree with the clock that built the entry; entries
// without CachedAt fall back to the wall clock.
func (e *Entry) Lifetime() time.Duration {
	if e.CachedAt.IsZero() {
		return e.TTL(time.Now())
	}
	return e.TTL(e.CachedAt)
}
