package glyph

import (
	"math"

	"github.com/kekelp/textslabs/internal/cache"
)

// Cache holds rasterized masks keyed by glyph variant. Eviction drops
// the bitmap only; atlas-resident copies are indexed separately by the
// renderer and survive until an atlas reset.
type Cache struct {
	c *cache.Sharded[Key, *Mask]
}

// NewCache creates a mask cache. capacity is per shard (16 shards);
// <= 0 uses the default.
func NewCache(capacity int) *Cache {
	return &Cache{
		c: cache.NewSharded[Key, *Mask](capacity, Key.Hash, nil),
	}
}

// GetOrCreate returns the cached mask for key, rasterizing on miss.
func (c *Cache) GetOrCreate(key Key, create func() *Mask) *Mask {
	return c.c.GetOrCreate(key, create)
}

// GetOrRasterize returns the cached mask for key, rasterizing the
// variant the key encodes on miss. Failures are returned and never
// cached, so a transient error does not poison the entry.
func (c *Cache) GetOrRasterize(key Key, r *Rasterizer) (*Mask, error) {
	if m, ok := c.c.Get(key); ok {
		return m, nil
	}
	m, err := r.Mask(key.GID, math.Float32frombits(key.SizeBits), key.Bin)
	if err != nil {
		return nil, err
	}
	c.c.Set(key, m)
	return m, nil
}

// Len returns the number of cached masks.
func (c *Cache) Len() int { return c.c.Len() }

// Clear drops every cached mask.
func (c *Cache) Clear() { c.c.Clear() }

// Stats returns cache hit/miss counters.
func (c *Cache) Stats() cache.Stats { return c.c.Stats() }
