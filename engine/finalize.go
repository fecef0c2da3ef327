package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/certivo/certivo/report"
	"github.com/certivo/certivo/session"
	"github.com/certivo/certivo/storage"
)

// Finalize aggregates a session's consumed slots into its trust result. An
// Active session transitions to Completed; an Expired session is scored from
// its last-known state and stays Expired. A high-trust outcome grants the
// device a fast-track record, the only path that does so. The result is
// appended to the report log when one is configured.
func (e *Engine) Finalize(ctx context.Context, sessionID string) (*TrustResult, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", sessionID, ErrInvalidSession)
		}
		return nil, err
	}
	if sess.State == session.StateCompleted {
		return nil, fmt.Errorf("%s already finalized: %w", sessionID, ErrInvalidSession)
	}
	if len(sess.ConsumedSlots()) == 0 {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNoChallenges)
	}

	if sess.State == session.StateActive {
		sess, err = e.complete(sessionID)
		if err != nil {
			return nil, err
		}
	}

	consumed := sess.ConsumedSlots()
	result := scoreSession(consumed)

	if result.TrustLevel == LevelHigh {
		if err := e.trusted.Grant(sess.Fingerprint, result.TrustScore, e.trustTTL); err != nil {
			return nil, fmt.Errorf("granting device trust: %w", err)
		}
		e.logger.Info("trust_granted",
			slog.String("session_id", sessionID),
			slog.String("fingerprint", sess.Fingerprint),
			slog.Float64("confidence", result.TrustScore))
	}

	if e.reports != nil {
		rec := report.Record{
			SessionID:   sess.ID,
			Fingerprint: sess.Fingerprint,
			TrustScore:  result.TrustScore,
			TrustLevel:  string(result.TrustLevel),
			FailedCount: result.FailedCount,
			TotalCount:  result.TotalCount,
			AvgLiveness: avgLiveness(consumed),
			CreatedAt:   e.now(),
		}
		if err := e.reports.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("appending session report: %w", err)
		}
	}

	e.logger.Info("session_finalized",
		slog.String("session_id", sessionID),
		slog.Float64("trust_score", result.TrustScore),
		slog.String("trust_level", string(result.TrustLevel)),
		slog.Int("failed_count", result.FailedCount),
		slog.Int("total_count", result.TotalCount))
	return &result, nil
}

// complete transitions an Active session to Completed, retrying around
// concurrent submissions that advance the index mid-finalize.
func (e *Engine) complete(sessionID string) (*session.Session, error) {
	for attempt := 0; attempt < 3; attempt++ {
		sess, err := e.store.Get(sessionID)
		if err != nil {
			return nil, err
		}
		switch sess.State {
		case session.StateCompleted:
			return nil, fmt.Errorf("%s already finalized: %w", sessionID, ErrInvalidSession)
		case session.StateExpired:
			return sess, nil
		}

		updated, err := e.store.CompareAndAdvance(sessionID, sess.CurrentIndex, func(s *session.Session) error {
			if s.State == session.StateCompleted {
				return fmt.Errorf("%s already finalized: %w", sessionID, ErrInvalidSession)
			}
			if s.State == session.StateActive {
				s.State = session.StateCompleted
			}
			return nil
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, storage.ErrStaleIndex) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", sessionID, storage.ErrStaleIndex)
}
