package server

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	data    []byte
	created time.Time
}

// resultCache keeps rendered responses per cacheKey for a fixed time.
type resultCache struct {
	mu   sync.RWMutex
	now  func() time.Time
	ttl  time.Duration
	data map[string]cacheEntry
}

func newResultCache(now func() time.Time, ttl time.Duration) *resultCache {
	if now == nil {
		now = time.Now
	}
	return &resultCache{
		now:  now,
		ttl:  ttl,
		data: make(map[string]cacheEntry),
	}
}

// varyHeaders are the client supplied upstream headers that change the page.
var varyHeaders = []string{"User-Agent", "Accept-Language", "Referer"}

// cacheKey identifies a rendering of target: the mode and the upstream
// headers in varyHeaders.
func cacheKey(target string, js bool, hdr http.Header) string {
	var b strings.Builder
	b.WriteString(target)
	if js {
		b.WriteString("|js")
	}
	for _, name := range varyHeaders {
		if v := hdr.Get(name); v != "" {
			b.WriteString("|" + name + "=" + v)
		}
	}
	return b.String()
}

// Store keeps a copy of data. A zero TTL disables the cache.
func (c *resultCache) Store(key string, data []byte) {
	if c.ttl <= 0 || len(data) == 0 {
		return
	}
	entry := cacheEntry{
		data:    append([]byte(nil), data...),
		created: c.now(),
	}
	c.mu.Lock()
	c.data[key] = entry
	c.mu.Unlock()
}

// Select returns the response stored under key if it has not expired.
// Expired entries are removed on lookup.
func (c *resultCache) Select(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.created) >= c.ttl {
		c.mu.Lock()
		if cur, ok := c.data[key]; ok && cur.created.Equal(entry.created) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return append([]byte(nil), entry.data...), true
}

// Len returns the number of stored entries, expired ones included.
func (c *resultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
