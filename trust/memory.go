package trust

import (
	"sync"
	"time"
)

// MemoryCache is a thread-safe in-memory Cache. Grants are lost on restart.
type MemoryCache struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates an empty in-memory trust cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		records: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) IsTrusted(fingerprint string) (bool, error) {
	_, ok, err := c.Lookup(fingerprint)
	return ok, err
}

func (c *MemoryCache) Lookup(fingerprint string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[fingerprint]
	if !ok {
		return Record{}, false, nil
	}
	if !c.now().Before(rec.ExpiresAt) {
		delete(c.records, fingerprint)
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (c *MemoryCache) Grant(fingerprint string, confidence float64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.records[fingerprint] = Record{
		Fingerprint: fingerprint,
		Confidence:  confidence,
		GrantedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Revoke(fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, fingerprint)
	return nil
}
