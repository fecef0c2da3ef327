// Package storetest provides a conformance suite run against every
// storage.Store implementation.
package storetest

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certivo/certivo/challenge"
	"github.com/certivo/certivo/session"
	"github.com/certivo/certivo/storage"
)

// Factory builds a fresh store whose lazy-expiry clock reads from now.
type Factory func(t *testing.T, now func() time.Time) storage.Store

func newSession(created time.Time, lifetime time.Duration, slots int) *session.Session {
	challenges := make([]challenge.Slot, 0, slots)
	for i := 0; i < slots; i++ {
		challenges = append(challenges, challenge.Slot{
			ChallengeID:  uuid.NewString(),
			Kind:         challenge.KindBlink,
			Difficulty:   challenge.DifficultyMedium,
			Instruction:  "Blink twice",
			MaxAttempts:  2,
			BindingToken: "tok-" + uuid.NewString(),
		})
	}
	return &session.Session{
		ID:          uuid.NewString(),
		Fingerprint: "fp-test",
		State:       session.StateActive,
		CreatedAt:   created,
		ExpiresAt:   created.Add(lifetime),
		Challenges:  challenges,
	}
}

// Run executes the common suite against the store built by the factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 3)
		require.NoError(t, store.Create(sess))

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, session.StateActive, got.State)
		assert.Len(t, got.Challenges, 3)
		assert.Equal(t, sess.Challenges[0].BindingToken, got.Challenges[0].BindingToken)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		require.NoError(t, store.Create(sess))
		require.ErrorIs(t, store.Create(sess), storage.ErrAlreadyExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := factory(t, time.Now)
		_, err := store.Get("no-such-session")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		require.NoError(t, store.Create(sess))

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		got.Challenges[0].Passed = true
		got.CurrentIndex = 99

		again, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.False(t, again.Challenges[0].Passed)
		assert.Zero(t, again.CurrentIndex)
	})

	t.Run("LazyExpiry", func(t *testing.T) {
		now := time.Now()
		current := now
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		}
		store := factory(t, clock)

		sess := newSession(now, time.Minute, 1)
		require.NoError(t, store.Create(sess))

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateActive, got.State)

		mu.Lock()
		current = now.Add(2 * time.Minute)
		mu.Unlock()

		got, err = store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateExpired, got.State)

		// The flip is persisted, not recomputed per read.
		mu.Lock()
		current = now
		mu.Unlock()
		got, err = store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateExpired, got.State)
	})

	t.Run("CompareAndAdvance", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 2)
		require.NoError(t, store.Create(sess))

		updated, err := store.CompareAndAdvance(sess.ID, 0, func(s *session.Session) error {
			s.Challenges[0].Attempts++
			s.Challenges[0].Passed = true
			s.Challenges[0].Consumed = true
			s.CurrentIndex++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.CurrentIndex)
		assert.True(t, updated.Challenges[0].Passed)

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentIndex)
	})

	t.Run("CompareAndAdvanceStale", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 2)
		require.NoError(t, store.Create(sess))

		_, err := store.CompareAndAdvance(sess.ID, 0, func(s *session.Session) error {
			s.CurrentIndex++
			return nil
		})
		require.NoError(t, err)

		_, err = store.CompareAndAdvance(sess.ID, 0, func(s *session.Session) error {
			s.CurrentIndex++
			return nil
		})
		require.ErrorIs(t, err, storage.ErrStaleIndex)
	})

	t.Run("CompareAndAdvanceMutationError", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		require.NoError(t, store.Create(sess))

		boom := assert.AnError
		_, err := store.CompareAndAdvance(sess.ID, 0, func(s *session.Session) error {
			s.CurrentIndex++
			s.Challenges[0].Passed = true
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Zero(t, got.CurrentIndex, "failed mutation must not be persisted")
		assert.False(t, got.Challenges[0].Passed)
	})

	t.Run("CompareAndAdvanceMissing", func(t *testing.T) {
		store := factory(t, time.Now)
		_, err := store.CompareAndAdvance("no-such-session", 0, func(s *session.Session) error {
			return nil
		})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ConcurrentSubmissionsOneWinner", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		require.NoError(t, store.Create(sess))

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		start := make(chan struct{})
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = store.CompareAndAdvance(sess.ID, 0, func(s *session.Session) error {
					s.CurrentIndex++
					return nil
				})
			}(i)
		}
		close(start)
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				require.ErrorIs(t, err, storage.ErrStaleIndex)
			}
		}
		assert.Equal(t, 1, winners)

		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentIndex)
	})

	t.Run("Expire", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		require.NoError(t, store.Create(sess))

		require.NoError(t, store.Expire(sess.ID))
		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateExpired, got.State)
	})

	t.Run("ExpireMissing", func(t *testing.T) {
		store := factory(t, time.Now)
		require.ErrorIs(t, store.Expire("no-such-session"), storage.ErrNotFound)
	})

	t.Run("ExpireDoesNotTouchCompleted", func(t *testing.T) {
		store := factory(t, time.Now)
		sess := newSession(time.Now(), time.Hour, 1)
		sess.State = session.StateCompleted
		require.NoError(t, store.Create(sess))

		require.NoError(t, store.Expire(sess.ID))
		got, err := store.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateCompleted, got.State)
	})
}
