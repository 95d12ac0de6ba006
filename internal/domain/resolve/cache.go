package resolve

import (
	"sync"

	"github.com/trackwave/trackwave/internal/domain/model"
)

const defaultIdentityCacheSize = 10_000

// IdentityCache is a bounded external-reference cache with FIFO eviction.
// It is an explicit injectable object so tests can reset it; resolution
// must never depend on ambient process state.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[string]model.ArtistIdentity
	order   []string // insertion order for eviction
	maxSize int
}

// CacheOption applies a configuration option to the IdentityCache.
type CacheOption func(*IdentityCache)

// WithCacheSize bounds the number of cached identities.
func WithCacheSize(size int) CacheOption {
	return func(c *IdentityCache) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// NewIdentityCache creates a bounded identity cache.
func NewIdentityCache(opts ...CacheOption) *IdentityCache {
	c := &IdentityCache{
		entries: make(map[string]model.ArtistIdentity),
		maxSize: defaultIdentityCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached identity for ref, if present.
func (c *IdentityCache) Get(ref string) (model.ArtistIdentity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	identity, ok := c.entries[ref]
	return identity, ok
}

// Put stores a resolved identity, evicting the oldest entry when full.
func (c *IdentityCache) Put(ref string, identity model.ArtistIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[ref]; !ok {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, ref)
	}
	c.entries[ref] = identity
}

// Len returns the number of cached identities.
func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached identity.
func (c *IdentityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.ArtistIdentity)
	c.order = nil
}
