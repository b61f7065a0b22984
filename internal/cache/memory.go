package cache

import (
	"context"
	"sync"
	"time"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = time.Minute

// MemoryCache is an in-memory Cache with a fixed TTL.
type MemoryCache struct {
	data     map[string]entry
	mu       sync.RWMutex
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	stopChan chan struct{}
	stopped  bool
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a cache whose entries live for ttl, or DefaultTTL
// when ttl is not positive. When maxItems is positive, inserting into a full
// cache evicts the entry closest to expiry.
func NewMemoryCache(ttl time.Duration, maxItems int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		data:     make(map[string]entry),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// Get returns a copy of the value if it exists and hasn't expired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.data[key]
	if !exists || c.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil
	}

	if _, exists := c.data[key]; !exists && c.maxItems > 0 && len(c.data) >= c.maxItems {
		c.evictOldest()
	}
	c.data[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine and clears data.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
		c.data = make(map[string]entry)
	}
	return nil
}

// evictOldest removes the entry closest to expiry (called with lock held).
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.data {
		if first || e.expiresAt.Before(oldest) {
			oldestKey, oldest, first = k, e.expiresAt, false
		}
	}
	if !first {
		delete(c.data, oldestKey)
	}
}

// cleanup periodically removes expired entries.
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, key)
		}
	}
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
