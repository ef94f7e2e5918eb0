package rules

import "sync"

// MapCache is a ProgramCache backed by a mutex guarded map. Entries never
// expire; rule sets are small and fixed at construction.
type MapCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

func NewMapCache() *MapCache {
	return &MapCache{programs: make(map[string]any)}
}

func (c *MapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *MapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = make(map[string]any)
	}
	c.programs[key] = value
}

// Len returns the number of cached programs.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}
