package cache

import (
	"fmt"
	"time"
)

// ResourceKind classifies a cached resource by how stale it may get.
type ResourceKind string

const (
	// KindList covers paged list endpoints.
	KindList ResourceKind = "list"

	// KindDetail covers single-resource detail endpoints.
	KindDetail ResourceKind = "detail"

	// KindTaxonomy covers categories, tags and other reference data.
	KindTaxonomy ResourceKind = "taxonomy"

	// KindRelated covers related-content lookups.
	KindRelated ResourceKind = "related"

	// KindNavigation covers previous/next navigation lookups.
	KindNavigation ResourceKind = "navigation"

	// KindSearch covers search results.
	KindSearch ResourceKind = "search"
)

// Policy maps resource kinds to cache TTLs.
type Policy map[ResourceKind]time.Duration

// DefaultPolicy returns the TTLs used by the platform services.
func DefaultPolicy() Policy {
	return Policy{
		KindList:       120 * time.Second,
		KindDetail:     300 * time.Second,
		KindTaxonomy:   900 * time.Second,
		KindRelated:    120 * time.Second,
		KindNavigation: 120 * time.Second,
		KindSearch:     60 * time.Second,
	}
}

// TTL returns the TTL configured for kind, or 0 (no caching) when the
// kind is unknown.
func (p Policy) TTL(kind ResourceKind) time.Duration {
	return p[kind]
}

// Validate checks that no TTL is negative.
func (p Policy) Validate() error {
	for kind, ttl := range p {
		if ttl < 0 {
			return fmt.Errorf("ttl for %s must be >= 0 (got %v)", kind, ttl)
		}
	}
	return nil
}
