// Package dashboard serves aggregate inventory statistics behind a
// single-slot, time-expiring cache.
package dashboard

import (
	"sync"
	"time"

	"github.com/shelfline/shelfline/internal/shared"
)

// DefaultTTL is how long a computed stats snapshot stays fresh.
const DefaultTTL = 30 * time.Second

// SlotCache holds one value with a TTL. The clock is injected so tests can
// advance time deterministically. Any lifecycle mutation calls Invalidate;
// there is no field-level dependency tracking.
type SlotCache struct {
	mu    sync.Mutex
	data  *Stats
	at    time.Time
	ttl   time.Duration
	clock shared.Clock
}

// NewSlotCache constructs the cache. Zero ttl falls back to DefaultTTL.
func NewSlotCache(ttl time.Duration, clock shared.Clock) *SlotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &SlotCache{ttl: ttl, clock: clock}
}

// Get returns the cached stats if they are younger than the TTL.
func (c *SlotCache) Get() (*Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return nil, false
	}
	if c.clock().Sub(c.at) >= c.ttl {
		return nil, false
	}
	return c.data, true
}

// Set stores a freshly computed snapshot.
func (c *SlotCache) Set(stats *Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = stats
	c.at = c.clock()
}

// Invalidate clears the slot unconditionally.
func (c *SlotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}
