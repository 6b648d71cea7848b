package imgcolor

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/gwern/gwernbuild/internal/atomicfile"
)

// Cache memoizes the invertibility decision per image URL across builds,
// resolving the design's open question about the original's inline
// image-inversion side effects: an explicit cache with explicit
// invalidation (Forget), rather than an unmemoized decision recomputed
// (and re-fetched) on every build.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]bool
}

// LoadCache reads path's cache, or returns an empty cache if path does not
// exist yet.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the memoized invertibility decision for url, if any.
func (c *Cache) Get(url string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[url]
	return v, ok
}

// Set records url's invertibility decision and persists the cache.
func (c *Cache) Set(url string, invertible bool) error {
	c.mu.Lock()
	c.entries[url] = invertible
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if c.path == "" {
		return nil
	}
	return atomicfile.Write(c.path, data)
}

// Forget invalidates a memoized decision, so the next check recomputes it.
func (c *Cache) Forget(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}
