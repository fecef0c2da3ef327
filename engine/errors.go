package engine

import "errors"

var (
	// ErrInvalidSession indicates the session does not exist or is not Active.
	ErrInvalidSession = errors.New("invalid or inactive session")
	// ErrOutOfOrder indicates the submission does not reference the slot at
	// the current index. Challenges complete strictly in issued order.
	ErrOutOfOrder = errors.New("challenge order violation")
	// ErrAlreadyConsumed indicates the referenced slot can no longer accept
	// submissions.
	ErrAlreadyConsumed = errors.New("challenge already consumed")
	// ErrInvalidToken indicates the binding token does not match the slot.
	ErrInvalidToken = errors.New("invalid binding token")
	// ErrReplayDetected indicates the submitted media was seen before.
	ErrReplayDetected = errors.New("replayed media detected")
	// ErrNoChallenges indicates finalize was called with zero consumed slots.
	ErrNoChallenges = errors.New("no consumed challenges")
	// ErrNoRemaining indicates every slot has already been consumed.
	ErrNoRemaining = errors.New("no remaining challenges")
	// ErrAnalyzerUnavailable wraps a transient signal analyzer failure. The
	// submission consumed neither an attempt nor its media hash; the caller
	// may retry.
	ErrAnalyzerUnavailable = errors.New("signal analyzer unavailable")
)
