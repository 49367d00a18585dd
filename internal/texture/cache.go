package texture

import (
	"image"
	"path/filepath"
	"sync"
)

// Resolver resolves a texture name to a decoded image, or nil.
type Resolver interface {
	Resolve(name string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache rooted at a directory. Failed
// loads are cached too, so a missing file is only looked up once.
type Cache struct {
	dir   string
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img *image.NRGBA
	err error
}

// NewCache creates a cache that resolves relative names against dir.
func NewCache(dir string) *Cache {
	return &Cache{
		dir:   dir,
		items: make(map[string]*cacheEntry),
	}
}

// Resolve loads and caches a texture by name. Returns nil if it cannot be
// loaded.
func (c *Cache) Resolve(name string) *image.NRGBA {
	img, _ := c.Load(name)
	return img
}

// Load is Resolve with the load error.
func (c *Cache) Load(name string) (*image.NRGBA, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, filepath.FromSlash(name))
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := Load(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

// Len returns the number of cached lookups, failed ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
