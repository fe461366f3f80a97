package bm25

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BuildFunc loads the chunks for a scope and builds an index over them
type BuildFunc func(ctx context.Context) (*Index, error)

// Cache holds built indexes keyed by tenant and file-filter signature.
// Entries have no TTL: correctness relies on Invalidate being called on
// every re-index or delete. Concurrent requests for a missing key share
// one build via singleflight instead of racing.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Index
	group   singleflight.Group
}

// NewCache creates an empty Cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Index)}
}

// cacheKey derives a deterministic key from tenant and filter set. The
// filter is sorted so {A,B} and {B,A} share an entry.
func cacheKey(tenantID string, fileIDs []string) string {
	if len(fileIDs) == 0 {
		return tenantID + "|*"
	}
	sorted := append([]string(nil), fileIDs...)
	sort.Strings(sorted)
	return tenantID + "|" + strings.Join(sorted, ",")
}

// Get returns the cached index for the scope, building it with build on
// a miss. Only one build runs per key at a time.
func (c *Cache) Get(ctx context.Context, tenantID string, fileIDs []string, build BuildFunc) (*Index, error) {
	key := cacheKey(tenantID, fileIDs)

	c.mu.RLock()
	idx, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return idx, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check: an earlier flight may have populated the entry
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build sparse index: %w", err)
		}

		c.mu.Lock()
		c.entries[key] = built
		c.mu.Unlock()

		return built, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Index), nil
}

// Invalidate drops every entry belonging to a tenant. Must be called
// whenever the tenant's chunks change.
func (c *Cache) Invalidate(tenantID string) {
	prefix := tenantID + "|"

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, idx := range c.entries {
		if strings.HasPrefix(key, prefix) {
			_ = idx.Close()
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached indexes
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
