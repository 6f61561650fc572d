package embed

import (
	"sync"
	"sync/atomic"
)

// Cache memoizes metadata by URL. Entries are never replaced, so concurrent
// lookups need no locking; a lost race only costs a duplicate fetch.
type Cache struct {
	entries sync.Map
	size    atomic.Int64
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(url string) (Metadata, bool) {
	v, ok := c.entries.Load(url)
	if !ok {
		return Metadata{}, false
	}
	return v.(Metadata), true
}

// Put inserts meta unless url is already cached, and returns the stored value.
func (c *Cache) Put(url string, meta Metadata) Metadata {
	actual, loaded := c.entries.LoadOrStore(url, meta)
	if !loaded {
		c.size.Add(1)
	}
	return actual.(Metadata)
}

func (c *Cache) Len() int {
	return int(c.size.Load())
}
