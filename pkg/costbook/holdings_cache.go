package costbook

import (
	"sync"
	"time"
)

// positionsCache keeps encoded Positions per (portfolio, as-at day). Entries
// are stored as msgpack so every hit decodes a private copy.
type positionsCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedPositions
}

type cachedPositions struct {
	encoded []byte
	expires time.Time
}

func newPositionsCache(ttl time.Duration) *positionsCache {
	return &positionsCache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cachedPositions{},
	}
}

func positionsCacheKey(portfolioCode string, asAt time.Time) string {
	return normalizeSymbol(portfolioCode) + "@" + formatDate(asAt)
}

func (c *positionsCache) get(key string) (*Positions, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	ps, err := UnmarshalPositions(entry.encoded)
	if err != nil {
		return nil, false
	}
	return ps, true
}

func (c *positionsCache) set(key string, ps *Positions) {
	encoded, err := MarshalPositions(ps)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedPositions{encoded: encoded, expires: c.now().Add(c.ttl)}
}

func (c *positionsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cachedPositions{}
}
