package cache

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxEntries caps the memory store when no size is given.
const DefaultMaxEntries = 1024

type memoryItem struct {
	key   string
	entry *Entry
}

// MemoryStore is a process-local store bounded by an LRU size cap.
// Staleness is decided by Cache; the store only orders by recency.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
}

// NewMemoryStore creates a memory store holding at most maxEntries entries.
// A non-positive maxEntries selects DefaultMaxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

// Name implements Store.
func (m *MemoryStore) Name() string { return "memory" }

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	m.order.MoveToFront(el)

	entry := *el.Value.(*memoryItem).entry
	return &entry, nil
}

// Set implements Store. Inserting beyond the cap evicts the least recently
// used entry.
func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *entry
	if el, ok := m.items[key]; ok {
		el.Value.(*memoryItem).entry = &stored
		m.order.MoveToFront(el)
		return nil
	}

	m.items[key] = m.order.PushFront(&memoryItem{key: key, entry: &stored})
	for m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Back())
		CacheEvictions.Inc()
	}
	CacheEntries.Set(float64(m.order.Len()))

	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeElement(el)
		CacheEntries.Set(float64(m.order.Len()))
	}
	return nil
}

// Len returns the number of entries currently held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryStore) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*memoryItem).key)
}
