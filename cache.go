package adminkit

import (
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// QueryKey identifies one cached server response. The first segment is the
// entity's query prefix, e.g. ["employee", "list", "page=1&pageSize=10"].
type QueryKey []string

// ListKey is the key of a list response for an encoded query.
func ListKey(prefix, encodedQuery string) QueryKey {
	return QueryKey{prefix, "list", encodedQuery}
}

// DetailKey is the key of a single record response.
func DetailKey(prefix, id string) QueryKey {
	return QueryKey{prefix, "detail", id}
}

func (k QueryKey) String() string {
	return strings.Join(k, "\x1f")
}

type cacheEntry struct {
	prefix   string
	epoch    uint64
	value    any
	storedAt time.Time
}

// QueryCache caches server responses between screen refreshes. A successful
// mutation invalidates everything under its entity prefix.
//
// Every prefix carries an epoch that InvalidatePrefix advances. An entry is
// only served while its epoch is current, so a response fetched before an
// invalidation never outlives it, even when it is stored afterwards.
type QueryCache struct {
	entries *xsync.MapOf[string, cacheEntry]
	epochs  *xsync.MapOf[string, uint64]
	ttl     time.Duration
	now     func() time.Time
}

// NewQueryCache creates a cache. Entries older than ttl are ignored; zero
// keeps entries until invalidated.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: xsync.NewMapOf[string, cacheEntry](),
		epochs:  xsync.NewMapOf[string, uint64](),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value of key.
func (c *QueryCache) Get(key QueryKey) (any, bool) {
	e, ok := c.entries.Load(key.String())
	if !ok {
		return nil, false
	}
	if e.epoch != c.Epoch(e.prefix) {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.entries.Delete(key.String())
		return nil, false
	}
	return e.value, true
}

// Epoch returns the current epoch of prefix. Read it before fetching and
// hand it to SetIfCurrent when the response arrives.
func (c *QueryCache) Epoch(prefix string) uint64 {
	epoch, _ := c.epochs.Load(prefix)
	return epoch
}

// Set stores value under key in the current epoch. Empty keys are ignored.
func (c *QueryCache) Set(key QueryKey, value any) {
	if len(key) == 0 {
		return
	}
	c.SetIfCurrent(key, value, c.Epoch(key[0]))
}

// SetIfCurrent stores value under key if epoch is still the epoch of the
// key's prefix. It reports whether the value was stored.
func (c *QueryCache) SetIfCurrent(key QueryKey, value any, epoch uint64) bool {
	if len(key) == 0 || epoch != c.Epoch(key[0]) {
		return false
	}
	c.entries.Store(key.String(), cacheEntry{prefix: key[0], epoch: epoch, value: value, storedAt: c.now()})
	return true
}

// InvalidatePrefix advances the epoch of prefix, drops every entry whose
// first segment is prefix and returns how many were dropped.
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	c.epochs.Compute(prefix, func(old uint64, _ bool) (uint64, bool) {
		return old + 1, false
	})
	n := 0
	c.entries.Range(func(k string, e cacheEntry) bool {
		if e.prefix == prefix {
			c.entries.Delete(k)
			n++
		}
		return true
	})
	return n
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	return c.entries.Size()
}

// Clear drops everything.
func (c *QueryCache) Clear() {
	c.entries.Clear()
}
