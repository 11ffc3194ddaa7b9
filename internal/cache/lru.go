// Package cache keeps fitted forecasters warm between requests.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies a fitted model. Two fits share a key only when the dataset, target,
// method, options and training data all match.
type Key struct {
	DatasetID string
	Column    string
	Method    string
	Options   string
	Data      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.DatasetID, k.Column, k.Method, k.Options, k.Data)
}

// LRUWithTTL is a size bounded cache whose entries also expire after ttl. A zero ttl
// never expires entries.
type LRUWithTTL[K comparable, V any] struct {
	cache *lru.Cache[K, *ttlEntry[V]]
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	hits    uint64
	misses  uint64
	evicted uint64
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func NewLRUWithTTL[K comparable, V any](size int, ttl time.Duration) (*LRUWithTTL[K, V], error) {
	cache, err := lru.New[K, *ttlEntry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create lru of size %d, %w", size, err)
	}
	return &LRUWithTTL[K, V]{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Get returns the value if present and not expired. Expired entries are removed.
func (c *LRUWithTTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.cache.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		c.misses++
		return zero, false
	}
	c.hits++
	return entry.value, true
}

// Set stores the value evicting the least recently used entry when full
func (c *LRUWithTTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	if evicted := c.cache.Add(key, &ttlEntry[V]{value: value, expiresAt: expiresAt}); evicted {
		c.evicted++
	}
}

func (c *LRUWithTTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
}

func (c *LRUWithTTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Stats returns cache statistics for observability.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Evicted uint64  `json:"evicted"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

func (c *LRUWithTTL[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Evicted: c.evicted,
		Size:    c.cache.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// CleanupExpired removes every expired entry and returns how many were removed
func (c *LRUWithTTL[K, V]) CleanupExpired() int {
	if c.ttl == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.cache.Keys() {
		if entry, ok := c.cache.Peek(key); ok && now.After(entry.expiresAt) {
			c.cache.Remove(key)
			removed++
		}
	}
	return removed
}
