// Package storage provides the durable session store abstraction. The store
// is the single source of truth for challenge ordering and session expiry.
package storage

import (
	"errors"

	"github.com/certivo/certivo/session"
)

var (
	// ErrNotFound is returned when no session exists for an ID.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists is returned by Create for a duplicate session ID.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrStaleIndex is returned when a compare-and-advance loses the race:
	// the stored current index no longer matches the caller's expectation.
	ErrStaleIndex = errors.New("stale challenge index")
)

// Mutation is applied to a session under the store's concurrency control.
// Returning an error aborts the write; the stored session is untouched.
type Mutation func(*session.Session) error

// Store is the durable session mapping. Every access lazily expires sessions
// whose lifetime has elapsed: an Active session past its expiry is flipped to
// Expired before it is returned.
//
// CompareAndAdvance is the sole mutation entry point for challenge
// submissions. It applies the mutation only if the stored current index still
// equals expectedIndex, so two concurrent submissions against the same slot
// produce exactly one winner and one ErrStaleIndex.
type Store interface {
	Create(s *session.Session) error
	Get(id string) (*session.Session, error)
	CompareAndAdvance(id string, expectedIndex int, mutate Mutation) (*session.Session, error)
	Expire(id string) error
}
