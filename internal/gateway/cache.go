package gateway

import (
	"context"
	"sync"
	"time"
)

const (
	// freshTTL is how long a cached upstream response is served without
	// revalidation.
	freshTTL = 30 * time.Second

	// staleTTL is the extra window during which an expired entry is still
	// served while a background refresh runs.
	staleTTL = 60 * time.Second
)

// Entry is one cached upstream response body.
type Entry struct {
	Data     []byte
	StoredAt time.Time
}

// Fresh reports whether the entry can be served without revalidation.
func (e Entry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) <= freshTTL
}

// Servable reports whether the entry may still be served stale while a
// background refresh is in flight.
func (e Entry) Servable(now time.Time) bool {
	return now.Sub(e.StoredAt) <= freshTTL+staleTTL
}

// ResponseCache stores successful upstream responses keyed by the full
// upstream URL. Implementations must be safe for concurrent use.
type ResponseCache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, data []byte) error
}

// MemoryCache is the in-process ResponseCache used when no Redis client is
// configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

// Get returns the entry for key if one exists and is still servable.
func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.Servable(time.Now()) {
		delete(c.entries, key)
		return Entry{}, false
	}
	return e, true
}

// Set stores data under key, evicting any entries that have aged out.
func (c *MemoryCache) Set(_ context.Context, key string, data []byte) error {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !e.Servable(now) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = Entry{Data: data, StoredAt: now}
	return nil
}
