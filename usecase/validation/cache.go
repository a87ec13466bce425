package validation

import (
	"sync"
	"time"
)

// Entry is the last known verdict for one access token.
type Entry struct {
	Token     string
	Valid     bool
	CheckedAt time.Time
	Note      string
}

// Fresh reports whether the verdict is still inside the trust window.
func (e Entry) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.CheckedAt) < window
}

// Cache holds recent token verdicts. It is the only shared mutable
// state in the validation path and provides its own locking; callers
// never need external synchronization.
type Cache struct {
	window time.Duration

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates a cache with the given freshness window.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Cache{
		window:  window,
		entries: make(map[string]Entry),
	}
}

// Window returns the freshness window the cache enforces.
func (c *Cache) Window() time.Duration {
	return c.window
}

// Get returns the entry for token, fresh or not. No side effects.
func (c *Cache) Get(token string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[token]
	return entry, ok
}

// Put overwrites any existing entry for the token.
func (c *Cache) Put(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Token] = entry
}

// Remove drops the entry for token, if any.
func (c *Cache) Remove(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// SweepExpired removes entries older than the freshness window and
// returns how many were removed.
func (c *Cache) SweepExpired(now time.Time) int {
	if now.IsZero() {
		now = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for token, entry := range c.entries {
		if !entry.Fresh(now, c.window) {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached verdicts.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
