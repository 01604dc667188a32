// Package cache holds whole rendered responses for a fixed time.
package cache

import (
	"net/http"
	"time"

	cmap "github.com/orcaman/concurrent-map"
)

// Response is a captured HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type entry struct {
	response *Response
	expires  time.Time
}

// PageCache maps keys to responses that expire after their TTL. It is safe
// for concurrent use.
type PageCache struct {
	entries cmap.ConcurrentMap
	now     func() time.Time
}

func New() *PageCache {
	return &PageCache{
		entries: cmap.New(),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *PageCache) WithClock(now func() time.Time) *PageCache {
	c.now = now
	return c
}

// Get returns a live entry. Expired entries are dropped on access.
func (c *PageCache) Get(key string) (*Response, bool) {
	value, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	e := value.(*entry)
	if !c.now().Before(e.expires) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.response, true
}

// Put stores resp under key for ttl. A non-positive ttl stores nothing.
func (c *PageCache) Put(key string, resp *Response, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.entries.Set(key, &entry{response: resp, expires: c.now().Add(ttl)})
}

// Clear drops every entry.
func (c *PageCache) Clear() {
	for _, key := range c.entries.Keys() {
		c.entries.Remove(key)
	}
}

// Len counts stored entries, live or not yet evicted.
func (c *PageCache) Len() int {
	return c.entries.Count()
}
