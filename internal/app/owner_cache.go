package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ownerCache is a small write-through cache of zone -> owning guild lookups.
// Entries are time-bounded and every mutating call on the shop service
// invalidates the affected key, so a remove or ownership change is visible
// immediately rather than after the TTL lapses.
type ownerCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]ownerCacheEntry
}

type ownerCacheEntry struct {
	ownerID   uuid.UUID
	expiresAt time.Time
}

func newOwnerCache(ttl time.Duration) *ownerCache {
	return &ownerCache{
		ttl:     ttl,
		entries: make(map[string]ownerCacheEntry),
	}
}

func ownerCacheKey(zoneID, namespace string) string {
	return namespace + ":" + zoneID
}

func (c *ownerCache) get(zoneID, namespace string) (uuid.UUID, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ownerCacheKey(zoneID, namespace)]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return uuid.Nil, false
	}
	return entry.ownerID, true
}

func (c *ownerCache) put(zoneID, namespace string, ownerID uuid.UUID) {
	c.mu.Lock()
	c.entries[ownerCacheKey(zoneID, namespace)] = ownerCacheEntry{
		ownerID:   ownerID,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *ownerCache) invalidate(zoneID, namespace string) {
	c.mu.Lock()
	delete(c.entries, ownerCacheKey(zoneID, namespace))
	c.mu.Unlock()
}

// invalidateAll drops the whole cache; used on bulk removals where the set of
// affected keys is not worth enumerating.
func (c *ownerCache) invalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]ownerCacheEntry)
	c.mu.Unlock()
}
