package builder

import (
	"crypto/sha256"
	"sync"

	"trustdir/internal/attrs"
)

// Digest identifies file content for cache lookups.
type Digest [sha256.Size]byte

// DigestOf returns the content digest for cache keys.
func DigestOf(data []byte) Digest {
	return sha256.Sum256(data)
}

// Cache is a content-addressed cache of parse results, shared between
// the builder and the parser so identical file content is only parsed
// once. It never influences reload decisions; those are stat-driven.
type Cache struct {
	mu      sync.Mutex
	entries map[Digest][]attrs.Attrs
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Digest][]attrs.Attrs)}
}

// Get returns cached parse results for a digest. The returned objects
// are copies; callers may stamp them freely.
func (c *Cache) Get(d Digest) ([]attrs.Attrs, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	objects, ok := c.entries[d]
	if !ok {
		return nil, false
	}
	out := make([]attrs.Attrs, len(objects))
	for i, obj := range objects {
		out[i] = obj.Dup()
	}
	return out, true
}

// Put stores parse results for a digest, copying them so later caller
// mutations cannot leak into the cache.
func (c *Cache) Put(d Digest, objects []attrs.Attrs) {
	stored := make([]attrs.Attrs, len(objects))
	for i, obj := range objects {
		stored[i] = obj.Dup()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[d] = stored
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
