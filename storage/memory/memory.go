// Package memory provides a thread-safe in-memory implementation of
// storage.Store. Suitable for testing, demos, and single-process use.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/certivo/certivo/session"
	"github.com/certivo/certivo/storage"
)

// Store is a thread-safe in-memory storage.Store. Sessions are lost on
// restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	now      func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for lazy expiry. Tests use this to
// step time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty in-memory session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*session.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("%s: %w", sess.ID, storage.ErrAlreadyExists)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *Store) Get(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// getLocked returns the stored session, applying lazy expiry first.
func (s *Store) getLocked(id string) (*session.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	if sess.State == session.StateActive && sess.ExpiredAt(s.now()) {
		sess.State = session.StateExpired
	}
	return sess, nil
}

func (s *Store) CompareAndAdvance(id string, expectedIndex int, mutate storage.Mutation) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.CurrentIndex != expectedIndex {
		return nil, fmt.Errorf("%s: index %d, expected %d: %w",
			id, sess.CurrentIndex, expectedIndex, storage.ErrStaleIndex)
	}

	// Mutate a clone so a failed mutation leaves the stored state intact.
	updated := sess.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.sessions[id] = updated
	return updated.Clone(), nil
}

func (s *Store) Expire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	if sess.State == session.StateActive {
		sess.State = session.StateExpired
	}
	return nil
}
