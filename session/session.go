// Package session defines the verification session model: one ordered run of
// challenges for a single device, from creation to a terminal state.
package session

import (
	"time"

	"github.com/certivo/certivo/challenge"
)

// State is the lifecycle state of a session. Transitions are monotonic:
// Active moves to Expired or Completed and never leaves a terminal state.
type State string

const (
	StateActive    State = "active"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
)

// Terminal reports whether the state accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateCompleted
}

// Session is one verification attempt. The challenge order is immutable once
// issued; CurrentIndex advances monotonically and is the only slot position
// accepting submissions.
type Session struct {
	ID           string           `json:"session_id"`
	Fingerprint  string           `json:"device_fingerprint"`
	State        State            `json:"state"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Challenges   []challenge.Slot `json:"challenges"`
	CurrentIndex int              `json:"current_index"`
}

// ExpiredAt reports whether the session's lifetime has elapsed at the given
// instant.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CurrentSlot returns the slot at CurrentIndex, or false when every slot has
// been consumed.
func (s *Session) CurrentSlot() (*challenge.Slot, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Challenges) {
		return nil, false
	}
	return &s.Challenges[s.CurrentIndex], true
}

// SlotByID returns the slot with the given challenge ID and its position.
func (s *Session) SlotByID(challengeID string) (*challenge.Slot, int, bool) {
	for i := range s.Challenges {
		if s.Challenges[i].ChallengeID == challengeID {
			return &s.Challenges[i], i, true
		}
	}
	return nil, 0, false
}

// Remaining reports whether any slot is still open for submission.
func (s *Session) Remaining() bool {
	return s.CurrentIndex < len(s.Challenges)
}

// ConsumedSlots returns the slots that can no longer accept submissions.
func (s *Session) ConsumedSlots() []challenge.Slot {
	var consumed []challenge.Slot
	for _, slot := range s.Challenges {
		if slot.Consumed {
			consumed = append(consumed, slot)
		}
	}
	return consumed
}

// Clone returns a deep copy. Stores hand out clones so callers never alias
// stored state.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Challenges = append([]challenge.Slot(nil), s.Challenges...)
	return &cp
}
