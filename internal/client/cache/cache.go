// Package cache keeps materialized journals in memory for the lifetime of a
// process so repeated reads skip the network.
package cache

import (
	"sync"

	"github.com/atinyakov/journalon/internal/models"
)

// Cache maps journal ids to journals. Values are copied on the way in and on the
// way out, so callers may mutate what they get back.
type Cache struct {
	mu    sync.RWMutex
	items map[string]models.Journal
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{items: make(map[string]models.Journal)}
}

// Get returns the cached journal for id.
func (c *Cache) Get(id string) (models.Journal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	j, ok := c.items[id]
	if !ok {
		return models.Journal{}, false
	}
	return j.Clone(), true
}

// Put caches j under id, replacing any previous value.
func (c *Cache) Put(id string, j models.Journal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = j.Clone()
}

// Remove drops id from the cache.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]models.Journal)
}

// Len returns the number of cached journals.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
