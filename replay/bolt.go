package replay

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketSeen = []byte("media_hashes")

// BoltGuard is a Guard persisted in a BBolt database, so replay protection
// survives restarts.
type BoltGuard struct {
	db *bbolt.DB
}

var _ Guard = (*BoltGuard)(nil)

// NewBoltGuard returns a guard over the given BBolt database.
func NewBoltGuard(db *bbolt.DB) (*BoltGuard, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSeen)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating media hash bucket: %w", err)
	}
	return &BoltGuard{db: db}, nil
}

func (g *BoltGuard) CheckAndRecord(contentHash string) (bool, error) {
	var seen bool
	err := g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSeen)
		if b.Get([]byte(contentHash)) != nil {
			seen = true
			return nil
		}
		return b.Put([]byte(contentHash), []byte{1})
	})
	if err != nil {
		return false, fmt.Errorf("recording media hash: %w", err)
	}
	return seen, nil
}

func (g *BoltGuard) Forget(contentHash string) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSeen).Delete([]byte(contentHash))
	})
}
