package trust

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketGrants = []byte("trust_grants")

// BoltCache is a Cache persisted in a BBolt database, so trust grants
// survive restarts.
type BoltCache struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ Cache = (*BoltCache)(nil)

// BoltOption configures a BoltCache.
type BoltOption func(*BoltCache)

// WithBoltClock replaces the wall clock used for expiry checks.
func WithBoltClock(now func() time.Time) BoltOption {
	return func(c *BoltCache) { c.now = now }
}

// NewBoltCache returns a trust cache over the given BBolt database.
func NewBoltCache(db *bbolt.DB, opts ...BoltOption) (*BoltCache, error) {
	c := &BoltCache{db: db, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGrants)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating trust grant bucket: %w", err)
	}
	return c, nil
}

func (c *BoltCache) IsTrusted(fingerprint string) (bool, error) {
	_, ok, err := c.Lookup(fingerprint)
	return ok, err
}

func (c *BoltCache) Lookup(fingerprint string) (Record, bool, error) {
	var (
		rec   Record
		found bool
	)
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketGrants)
		data := b.Get([]byte(fingerprint))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding trust grant %s: %w", fingerprint, err)
		}
		if !c.now().Before(rec.ExpiresAt) {
			return b.Delete([]byte(fingerprint))
		}
		found = true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	if !found {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (c *BoltCache) Grant(fingerprint string, confidence float64, ttl time.Duration) error {
	now := c.now()
	rec := Record{
		Fingerprint: fingerprint,
		Confidence:  confidence,
		GrantedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGrants).Put([]byte(fingerprint), data)
	})
}

func (c *BoltCache) Revoke(fingerprint string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGrants).Delete([]byte(fingerprint))
	})
}
