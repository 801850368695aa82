package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// ResponseCache stores raw provider responses keyed by a deterministic hash
// of the request. Implementations must be safe for concurrent use; entries
// are independent per key, so no cross-item contention exists.
type ResponseCache interface {
	// Get returns the cached value and true on a hit.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// CacheKey computes a deterministic cache key from an operation kind, the
// model, and the request parts. Text parts are whitespace-normalized and
// lower-cased so trivially reformatted input hits the same entry.
func CacheKey(operation, model string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(model))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(normalizeText(p)))
	}
	return "analysis:" + operation + ":" + hex.EncodeToString(h.Sum(nil))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// memoryCache is an in-process TTL cache for tests and single-node
// deployments. Expired entries are dropped lazily on read and whenever a
// write observes the map has grown past cleanupThreshold.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

const cleanupThreshold = 4096

// NewMemoryCache creates an in-process ResponseCache.
func NewMemoryCache() ResponseCache {
	return &memoryCache{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= cleanupThreshold {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = memoryCacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
