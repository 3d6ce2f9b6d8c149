package cache

import (
	"log/slog"
	"sync"
	"time"
)

// entry is a cached value with its expiration time
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe map whose entries expire after a fixed TTL.
// A background ticker sweeps expired entries until Stop is called.
type TTLCache[V any] struct {
	items         map[string]entry[V]
	mutex         sync.RWMutex
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	now           func() time.Time
}

// NewTTLCache creates a new TTL cache with specified TTL and cleanup interval
func NewTTLCache[V any](ttl, cleanupInterval time.Duration) *TTLCache[V] {
	c := &TTLCache[V]{
		items:       make(map[string]entry[V]),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}

	c.cleanupTicker = time.NewTicker(cleanupInterval)
	go c.cleanupExpiredEntries()

	slog.Info("TTL cache initialized",
		"ttl", ttl.String(),
		"cleanup_interval", cleanupInterval.String())

	return c
}

// Set stores a value in the cache with TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	expiresAt := c.now().Add(c.ttl)
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}

	slog.Debug("Cache entry set",
		"key", key,
		"expires_at", expiresAt.Format(time.RFC3339))
}

// Get retrieves a value if it exists and hasn't expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero V
	e, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		slog.Debug("Cache entry expired", "key", key)
		return zero, false
	}
	return e.value, true
}

// Delete removes a specific key from the cache
func (c *TTLCache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Size returns the number of stored entries, expired ones included
func (c *TTLCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// ActiveSize returns the number of non-expired entries
func (c *TTLCache[V]) ActiveSize() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	active := 0
	for _, e := range c.items {
		if !now.After(e.expiresAt) {
			active++
		}
	}
	return active
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *TTLCache[V]) Stop() {
	c.stopOnce.Do(func() {
		c.cleanupTicker.Stop()
		close(c.stopCleanup)
		slog.Info("TTL cache stopped")
	})
}

func (c *TTLCache[V]) cleanupExpiredEntries() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.performCleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// performCleanup removes expired entries from the cache
func (c *TTLCache[V]) performCleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("Cache cleanup completed",
			"expired_entries", removed,
			"remaining_entries", len(c.items))
	}
}
