package schema

import "sync"

// Cache is the in-process storage type cache owned by a Registry.
//
// It is a plain concurrent map with explicit invalidation, injectable so
// that independent tenants and tests never share cached schemas. Entries
// are invalidated (never overwritten in place) on every schema save; a
// reader that already holds a resolved field map may keep using stale data,
// which is accepted best-effort behavior.
type Cache struct {
	mu    sync.RWMutex
	types map[string]*StorageType
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{types: make(map[string]*StorageType)}
}

// Get returns the cached type for name, if present.
func (c *Cache) Get(name string) (*StorageType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Put caches a type under its name.
func (c *Cache) Put(t *StorageType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[t.Name] = t
}

// Invalidate drops the entry for name, if present.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.types, name)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}
