package enrich

import (
	"sync"
	"time"

	"github.com/meridiancode/meridian/internal/graph"
)

type cacheKey struct {
	sourceID graph.NodeId
	fileHash string
}

type cacheEntry struct {
	relationships []InferredRelationship
	insertedAt    time.Time
	ttl           time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache holds prior enrichment results keyed by (source node, file content
// hash) so an unrelated edit doesn't re-pay for an AI call whose source
// content hasn't changed. Expired entries are evicted lazily on lookup and
// opportunistically on insert.
type Cache struct {
	mu         sync.Mutex
	entries    map[cacheKey]cacheEntry
	defaultTTL time.Duration
}

// NewCache returns an empty Cache using defaultTTL for new entries.
func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry), defaultTTL: defaultTTL}
}

// Get returns the cached relationships for (sourceID, fileHash) if present
// and not expired.
func (c *Cache) Get(sourceID graph.NodeId, fileHash string) ([]InferredRelationship, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{sourceID: sourceID, fileHash: fileHash}
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.relationships, true
}

// Insert stores relationships for (sourceID, fileHash), opportunistically
// sweeping a handful of expired entries while it holds the lock.
func (c *Cache) Insert(sourceID graph.NodeId, fileHash string, relationships []InferredRelationship) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	swept := 0
	for k, e := range c.entries {
		if swept >= 8 {
			break
		}
		if e.expired(now) {
			delete(c.entries, k)
			swept++
		}
	}
	c.entries[cacheKey{sourceID: sourceID, fileHash: fileHash}] = cacheEntry{
		relationships: relationships,
		insertedAt:    now,
		ttl:           c.defaultTTL,
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
