package portal

import (
	"context"
	"sync"

	"portalkit/internal/model"

	"golang.org/x/sync/singleflight"
)

type pageKey struct {
	container string
	page      string
}

func (k pageKey) String() string { return k.container + "\x00" + k.page }

// Cache holds the ordered part list of each portal page. Writers invalidate the page they
// changed; readers always get copies.
type Cache struct {
	mu      sync.RWMutex
	entries map[pageKey][]model.WebPart
	gen     uint64
	loads   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: map[pageKey][]model.WebPart{}}
}

// Get returns the cached list for the page, loading it with load on a miss. Concurrent misses
// for one page share a single load. A load that races with an invalidation is returned but not
// kept.
func (c *Cache) Get(ctx context.Context, container, page string, load func(ctx context.Context) ([]model.WebPart, error)) ([]model.WebPart, error) {
	k := pageKey{container: container, page: page}

	c.mu.RLock()
	parts, ok := c.entries[k]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return model.CopyParts(parts), nil
	}

	v, err, _ := c.loads.Do(k.String(), func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries[k] = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return model.CopyParts(v.([]model.WebPart)), nil
}

func (c *Cache) Invalidate(container, page string) {
	c.mu.Lock()
	delete(c.entries, pageKey{container: container, page: page})
	c.gen++
	c.mu.Unlock()
	c.loads.Forget(pageKey{container: container, page: page}.String())
}

func (c *Cache) InvalidateContainer(container string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.container == container {
			delete(c.entries, k)
			c.loads.Forget(k.String())
		}
	}
	c.gen++
	c.mu.Unlock()
}

// Len reports the number of cached pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Has(container, page string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[pageKey{container: container, page: page}]
	return ok
}
