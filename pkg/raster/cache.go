package raster

import (
	"crypto/sha256"
	"sync"
)

// decodeCache keeps decoded pixel data keyed by the content hash of the
// encoded bytes, so repeated opens of the same buffer skip the codec. It is
// bounded by the process configuration and disabled while both limits are
// zero. Hits return a deep copy: handles mutate their pixel data in place.
type decodeCache struct {
	mu    sync.Mutex
	items map[[sha256.Size]byte]*DecodedImage
	order [][sha256.Size]byte
	bytes int64
}

func (c *decodeCache) get(buf []byte) (*DecodedImage, bool) {
	cfg := CurrentConfig()
	if cfg.MaxCacheItems <= 0 {
		return nil, false
	}
	key := sha256.Sum256(buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return &DecodedImage{Pix: cloneNRGBA(d.Pix), Header: d.Header}, true
}

func (c *decodeCache) put(buf []byte, d *DecodedImage) {
	cfg := CurrentConfig()
	if cfg.MaxCacheItems <= 0 {
		return
	}
	size := int64(len(d.Pix.Pix))
	if cfg.MaxCacheMemoryBytes > 0 && size > cfg.MaxCacheMemoryBytes {
		return
	}
	key := sha256.Sum256(buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[[sha256.Size]byte]*DecodedImage)
	}
	if _, ok := c.items[key]; ok {
		return
	}
	// Evict oldest entries until the new one fits.
	for len(c.order) > 0 &&
		(len(c.items) >= cfg.MaxCacheItems ||
			(cfg.MaxCacheMemoryBytes > 0 && c.bytes+size > cfg.MaxCacheMemoryBytes)) {
		oldest := c.order[0]
		c.order = c.order[1:]
		if old, ok := c.items[oldest]; ok {
			c.bytes -= int64(len(old.Pix.Pix))
			delete(c.items, oldest)
		}
	}
	if len(c.items) >= cfg.MaxCacheItems {
		return
	}
	c.items[key] = &DecodedImage{Pix: cloneNRGBA(d.Pix), Header: d.Header}
	c.order = append(c.order, key)
	c.bytes += size
}
