package engine

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/certivo/certivo/challenge"
	"github.com/certivo/certivo/replay"
	"github.com/certivo/certivo/session"
)

// SubmitResult reports the outcome of one challenge submission.
type SubmitResult struct {
	Passed        bool `json:"passed"`
	AttemptsUsed  int  `json:"attempts_used"`
	RetriesLeft   int  `json:"retries_left"`
	NextAvailable bool `json:"next_available"`
}

// SubmitEvaluation validates a challenge completion, runs the signal
// analyzer, and records the outcome.
//
// Validation order: session must be Active; the challenge must be the slot at
// the current index; the slot must not be consumed; the binding token must
// match; the media must be previously unseen. All five are local, terminal
// rejections. The analyzer runs after validation and outside every lock, so
// slow analysis never serializes unrelated sessions. The attempt counter
// increments only after a returned evaluation: an analyzer error leaves the
// session, the attempt budget, and the media hash untouched.
//
// A passing evaluation consumes the slot and advances the index. A failing
// one with attempts left holds the index for a retry; a failing one that
// exhausts the budget forfeits the slot and advances anyway.
func (e *Engine) SubmitEvaluation(ctx context.Context, sessionID, challengeID, bindingToken string, media []byte) (*SubmitResult, error) {
	sess, err := e.getActive(sessionID)
	if err != nil {
		return nil, err
	}

	slot, err := e.validateSlot(sess, challengeID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(bindingToken), []byte(slot.BindingToken)) != 1 {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrInvalidToken)
	}

	contentHash := replay.Hash(media)
	seen, err := e.guard.CheckAndRecord(contentHash)
	if err != nil {
		return nil, fmt.Errorf("replay check: %w", err)
	}
	if seen {
		e.logger.Warn("replay_detected",
			slog.String("session_id", sessionID),
			slog.String("challenge_id", challengeID))
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrReplayDetected)
	}

	eval, err := e.analyzer.Analyze(ctx, media, slot.Kind)
	if err != nil {
		// Transient failure: release the hash so the client can resubmit
		// the same capture.
		if forgetErr := e.guard.Forget(contentHash); forgetErr != nil {
			e.logger.Error("replay_rollback_failed",
				slog.String("session_id", sessionID),
				slog.String("error", forgetErr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrAnalyzerUnavailable, err)
	}

	expectedIndex := sess.CurrentIndex
	updated, err := e.store.CompareAndAdvance(sessionID, expectedIndex, func(s *session.Session) error {
		if s.State != session.StateActive {
			return fmt.Errorf("%s is %s: %w", sessionID, s.State, ErrInvalidSession)
		}
		cur := &s.Challenges[s.CurrentIndex]
		if cur.ChallengeID != challengeID || cur.Consumed {
			return fmt.Errorf("challenge %s: %w", challengeID, ErrAlreadyConsumed)
		}
		cur.Attempts++
		cur.Metrics = eval.Metrics
		switch {
		case eval.Passed:
			cur.Passed = true
			cur.Consumed = true
			s.CurrentIndex++
		case cur.Attempts >= cur.MaxAttempts:
			// Exhausting retries forfeits the slot rather than blocking
			// the session.
			cur.Consumed = true
			s.CurrentIndex++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	final := updated.Challenges[expectedIndex]
	result := &SubmitResult{
		Passed:        final.Passed,
		AttemptsUsed:  final.Attempts,
		RetriesLeft:   final.RetriesLeft(),
		NextAvailable: updated.Remaining(),
	}

	event := "challenge_failed"
	if final.Passed {
		event = "challenge_passed"
	}
	e.logger.Info(event,
		slog.String("session_id", sessionID),
		slog.String("challenge_id", challengeID),
		slog.String("kind", string(final.Kind)),
		slog.Int("attempts", final.Attempts),
		slog.String("failure_reason", eval.FailureReason))
	return result, nil
}

// validateSlot checks ordering and consumption for the referenced challenge.
// A consumed slot always reports ErrAlreadyConsumed, whether the index has
// moved past it or not; an unknown or not-yet-reached challenge is an
// ordering violation.
func (e *Engine) validateSlot(sess *session.Session, challengeID string) (*challenge.Slot, error) {
	slot, idx, ok := sess.SlotByID(challengeID)
	if !ok {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrOutOfOrder)
	}
	if slot.Consumed {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrAlreadyConsumed)
	}
	if idx != sess.CurrentIndex {
		return nil, fmt.Errorf("challenge %s at position %d, current index %d: %w",
			challengeID, idx, sess.CurrentIndex, ErrOutOfOrder)
	}
	return slot, nil
}
