// Package cache provides the in-memory build cache adapter.
package cache

import (
	"sync"

	"github.com/swiftwire/swiftwire/internal/application/ports"
)

// Compile-time check that BuildCache implements the BuildCache port.
var _ ports.BuildCache = (*BuildCache)(nil)

// BuildCache is per-path bookkeeping of the last content synced to the
// remote host. Entries are only removed by Clear; there is no size or age
// eviction in this design.
type BuildCache struct {
	mu      sync.RWMutex
	entries map[string]ports.BuildCacheEntry
}

// NewBuildCache creates an empty build cache.
func NewBuildCache() *BuildCache {
	return &BuildCache{entries: make(map[string]ports.BuildCacheEntry)}
}

// Get returns the cached entry for a path.
func (c *BuildCache) Get(path string) (ports.BuildCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path]
	return entry, ok
}

// Put stores an entry, replacing any previous entry for the path.
func (c *BuildCache) Put(entry ports.BuildCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Path] = entry
}

// Clear removes every entry. Called when the project manifest changes.
func (c *BuildCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ports.BuildCacheEntry)
}

// Len returns the number of cached entries.
func (c *BuildCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fingerprints returns cached fingerprints for the given paths, omitting
// paths with no entry.
func (c *BuildCache) Fingerprints(paths []string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		if entry, ok := c.entries[path]; ok {
			out[path] = entry.Fingerprint
		}
	}
	return out
}
