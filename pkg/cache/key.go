package cache

import (
	"net/url"
	"strings"
)

// KeyPrefix prefixes every key generated by CacheKey.
const KeyPrefix = "cc"

// CacheKey identifies a cached backend response.
// It must encode every parameter that affects the response.
type CacheKey struct {
	Namespace   string     // consumer, e.g. "blog"
	Endpoint    string     // API path, e.g. "/api/blog/posts"
	QueryParams url.Values // query sent with the request
}

// String returns the store key:
//
//	cc:blog:api/blog/posts?page=1&pageSize=10
//
// Query parameters are URL-encoded and sorted by name, so values containing
// separators cannot collide and equal queries map to one key.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(KeyPrefix)

	if k.Namespace != "" {
		b.WriteByte(':')
		b.WriteString(k.Namespace)
	}
	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		b.WriteByte(':')
		b.WriteString(endpoint)
	}
	if query := k.QueryParams.Encode(); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}
