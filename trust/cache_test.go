package trust_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/certivo/certivo/trust"
)

type steppedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *steppedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// caches builds one cache per backend sharing the given clock.
func caches(t *testing.T, clock *steppedClock) map[string]trust.Cache {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "trust.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	bolt, err := trust.NewBoltCache(db, trust.WithBoltClock(clock.now))
	require.NoError(t, err)
	return map[string]trust.Cache{
		"memory": trust.NewMemoryCache(trust.WithClock(clock.now)),
		"bolt":   bolt,
	}
}

func TestGrantAndExpiry(t *testing.T) {
	clock := &steppedClock{t: time.Now()}
	for name, cache := range caches(t, clock) {
		t.Run(name, func(t *testing.T) {
			fp := "fp-" + name
			require.NoError(t, cache.Grant(fp, 90, time.Hour))

			clock.advance(30 * time.Minute)
			trusted, err := cache.IsTrusted(fp)
			require.NoError(t, err)
			assert.True(t, trusted, "grant must hold at T+30m")

			rec, ok, err := cache.Lookup(fp)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 90.0, rec.Confidence)
			assert.Equal(t, fp, rec.Fingerprint)

			clock.advance(31 * time.Minute)
			trusted, err = cache.IsTrusted(fp)
			require.NoError(t, err)
			assert.False(t, trusted, "grant must lapse at T+61m")
		})
	}
}

func TestAbsentIsNotTrusted(t *testing.T) {
	clock := &steppedClock{t: time.Now()}
	for name, cache := range caches(t, clock) {
		t.Run(name, func(t *testing.T) {
			trusted, err := cache.IsTrusted("never-granted")
			require.NoError(t, err)
			assert.False(t, trusted)
		})
	}
}

func TestRevoke(t *testing.T) {
	clock := &steppedClock{t: time.Now()}
	for name, cache := range caches(t, clock) {
		t.Run(name, func(t *testing.T) {
			fp := "fp-revoke-" + name
			require.NoError(t, cache.Grant(fp, 95, time.Hour))
			require.NoError(t, cache.Revoke(fp))

			trusted, err := cache.IsTrusted(fp)
			require.NoError(t, err)
			assert.False(t, trusted)

			// Revoking an absent fingerprint is a no-op.
			require.NoError(t, cache.Revoke("never-granted"))
		})
	}
}

func TestRegrantExtends(t *testing.T) {
	clock := &steppedClock{t: time.Now()}
	for name, cache := range caches(t, clock) {
		t.Run(name, func(t *testing.T) {
			fp := "fp-regrant-" + name
			require.NoError(t, cache.Grant(fp, 86, time.Hour))

			clock.advance(50 * time.Minute)
			require.NoError(t, cache.Grant(fp, 92, time.Hour))

			clock.advance(30 * time.Minute)
			rec, ok, err := cache.Lookup(fp)
			require.NoError(t, err)
			require.True(t, ok, "re-grant must reset the expiry window")
			assert.Equal(t, 92.0, rec.Confidence)
		})
	}
}
