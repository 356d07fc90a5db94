package blocks

import (
	"context"
	"sync"
)

// StructureCache caches collected structures per (course, version).
// Entries are user-independent, so a hit can serve every request for
// that course version. Caching is best-effort: a miss just means the
// caller re-collects.
type StructureCache interface {
	Get(ctx context.Context, course CourseKey, version string) (*CollectedStructure, bool)
	Put(ctx context.Context, course CourseKey, version string, cs *CollectedStructure)
}

type memoryCache struct {
	mu      sync.RWMutex
	max     int
	entries map[string]*CollectedStructure
	order   []string // insertion order, evicted oldest-first
}

// NewMemoryCache returns an in-process cache bounded to max entries.
func NewMemoryCache(max int) StructureCache {
	if max <= 0 {
		max = 32
	}
	return &memoryCache{max: max, entries: map[string]*CollectedStructure{}}
}

func cacheKey(course CourseKey, version string) string {
	return string(course) + "@" + version
}

func (c *memoryCache) Get(_ context.Context, course CourseKey, version string) (*CollectedStructure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cs, ok := c.entries[cacheKey(course, version)]
	return cs, ok
}

func (c *memoryCache) Put(_ context.Context, course CourseKey, version string, cs *CollectedStructure) {
	key := cacheKey(course, version)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
		for len(c.order) > c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = cs
}

type nopCache struct{}

// NewNopCache disables structure caching.
func NewNopCache() StructureCache { return nopCache{} }

func (nopCache) Get(context.Context, CourseKey, string) (*CollectedStructure, bool) {
	return nil, false
}
func (nopCache) Put(context.Context, CourseKey, string, *CollectedStructure) {}
