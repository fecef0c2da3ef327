// Package bbolt provides a BBolt-backed session store.
package bbolt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/certivo/certivo/session"
	"github.com/certivo/certivo/storage"
)

var bucketSessions = []byte("sessions")

// Store implements storage.Store backed by a BBolt database.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for lazy expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a session store over the given BBolt database.
func NewStore(db *bbolt.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	return s, nil
}

// NewStoreFromFile opens a BBolt database at path and returns a session
// store over it.
func NewStoreFromFile(path string, options *bbolt.Options, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db, opts...)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(sess *session.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b.Get([]byte(sess.ID)) != nil {
			return fmt.Errorf("%s: %w", sess.ID, storage.ErrAlreadyExists)
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return b.Put([]byte(sess.ID), data)
	})
}

func (s *Store) Get(id string) (*session.Session, error) {
	var sess *session.Session
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		sess, err = s.loadTx(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// loadTx reads a session within a write transaction, persisting the lazy
// Active to Expired flip when the lifetime has elapsed.
func (s *Store) loadTx(tx *bbolt.Tx, id string) (*session.Session, error) {
	b := tx.Bucket(bucketSessions)
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	if sess.State == session.StateActive && sess.ExpiredAt(s.now()) {
		sess.State = session.StateExpired
		if err := s.storeTx(tx, &sess); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

func (s *Store) storeTx(tx *bbolt.Tx, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketSessions).Put([]byte(sess.ID), data)
}

func (s *Store) CompareAndAdvance(id string, expectedIndex int, mutate storage.Mutation) (*session.Session, error) {
	var updated *session.Session
	err := s.db.Update(func(tx *bbolt.Tx) error {
		sess, err := s.loadTx(tx, id)
		if err != nil {
			return err
		}
		if sess.CurrentIndex != expectedIndex {
			return fmt.Errorf("%s: index %d, expected %d: %w",
				id, sess.CurrentIndex, expectedIndex, storage.ErrStaleIndex)
		}
		if err := mutate(sess); err != nil {
			return err
		}
		if err := s.storeTx(tx, sess); err != nil {
			return err
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Expire(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sess, err := s.loadTx(tx, id)
		if err != nil {
			return err
		}
		if sess.State != session.StateActive {
			return nil
		}
		sess.State = session.StateExpired
		return s.storeTx(tx, sess)
	})
}
