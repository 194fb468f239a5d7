package session

import (
	"sync"
	"time"

	"github.com/danmuck/savitr/internal/protocol"
)

// StateCache holds the last decoded device snapshot. It is replaced
// wholesale on every successful decode and read concurrently by hosts.
type StateCache struct {
	mu        sync.RWMutex
	values    protocol.Values
	updatedAt time.Time
}

func NewStateCache() *StateCache {
	return &StateCache{
		values: make(protocol.Values),
	}
}

func (c *StateCache) Replace(values protocol.Values, at time.Time) {
	next := values.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = next
	c.updatedAt = at
}

func (c *StateCache) Get(name string) (protocol.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Snapshot returns a copy safe for the caller to keep.
func (c *StateCache) Snapshot() protocol.Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Clone()
}

func (c *StateCache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
