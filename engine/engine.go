// Package engine implements the challenge session engine: session creation
// with adaptive issuance, ordered challenge verification, and trust-score
// finalization.
package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/certivo/certivo/analyzer"
	"github.com/certivo/certivo/challenge"
	"github.com/certivo/certivo/internal/util"
	"github.com/certivo/certivo/replay"
	"github.com/certivo/certivo/report"
	"github.com/certivo/certivo/session"
	"github.com/certivo/certivo/storage"
	"github.com/certivo/certivo/trust"
)

const (
	// DefaultSessionLifetime bounds how long a session accepts submissions.
	DefaultSessionLifetime = 5 * time.Minute
	// DefaultTrustTTL is how long a high-trust grant fast-tracks a device.
	DefaultTrustTTL = 24 * time.Hour
)

// Engine coordinates the verification session lifecycle. Sessions are the
// unit of isolation; the trust cache and replay guard are the only shared
// mutable resources and both provide atomic check-and-set semantics.
type Engine struct {
	store    storage.Store
	issuer   *challenge.Issuer
	analyzer analyzer.Analyzer
	guard    replay.Guard
	trusted  trust.Cache
	reports  report.Store
	logger   *slog.Logger

	sessionLifetime time.Duration
	trustTTL        time.Duration
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithReportStore enables appending finalized sessions to a report log.
func WithReportStore(reports report.Store) Option {
	return func(e *Engine) { e.reports = reports }
}

// WithLogger sets the structured logger for engine events. If not set, a
// JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSessionLifetime sets the session expiry window.
func WithSessionLifetime(d time.Duration) Option {
	return func(e *Engine) { e.sessionLifetime = d }
}

// WithTrustTTL sets the lifetime of device trust grants.
func WithTrustTTL(d time.Duration) Option {
	return func(e *Engine) { e.trustTTL = d }
}

// WithClock replaces the wall clock. Tests use this to step time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over the given collaborators.
func New(store storage.Store, issuer *challenge.Issuer, an analyzer.Analyzer,
	guard replay.Guard, trusted trust.Cache, opts ...Option) *Engine {

	e := &Engine{
		store:           store,
		issuer:          issuer,
		analyzer:        an,
		guard:           guard,
		trusted:         trusted,
		sessionLifetime: DefaultSessionLifetime,
		trustTTL:        DefaultTrustTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	e.logger = e.logger.With(slog.String("component", "engine"))
	return e
}

// Fingerprint derives the device fingerprint from the device identifier and
// the client's user agent. The user agent is NFKD-normalized first so that
// visually identical strings fingerprint identically.
func Fingerprint(deviceID, userAgent string) string {
	sum := sha256.Sum256([]byte(deviceID + ":" + util.Normalize(userAgent)))
	return util.HexEncode(sum[:])
}

// StartSession issues a new verification session for a device. The full slot
// list is persisted atomically with the session; a session that fails to
// persist is never returned. The returned flag reports whether the device was
// fast-tracked by a current trust grant.
func (e *Engine) StartSession(ctx context.Context, deviceID, userAgent string) (*session.Session, bool, error) {
	fp := Fingerprint(deviceID, userAgent)

	isTrusted, err := e.trusted.IsTrusted(fp)
	if err != nil {
		return nil, false, fmt.Errorf("trust lookup: %w", err)
	}

	slots, err := e.issuer.Issue(e.priorLiveness(ctx, fp), isTrusted)
	if err != nil {
		return nil, false, err
	}

	now := e.now()
	sess := &session.Session{
		ID:          uuid.NewString(),
		Fingerprint: fp,
		State:       session.StateActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.sessionLifetime),
		Challenges:  slots,
	}
	if err := e.store.Create(sess); err != nil {
		return nil, false, fmt.Errorf("persisting session: %w", err)
	}

	e.logger.Info("session_created",
		slog.String("session_id", sess.ID),
		slog.String("fingerprint", fp),
		slog.Bool("trusted_device", isTrusted),
		slog.Int("challenges", len(slots)))
	return sess, isTrusted, nil
}

// priorLiveness returns the device's average liveness across finalized
// sessions, or nil when no history is available.
func (e *Engine) priorLiveness(ctx context.Context, fingerprint string) *float64 {
	if e.reports == nil {
		return nil
	}
	records, err := e.reports.List(ctx, fingerprint)
	if err != nil || len(records) == 0 {
		return nil
	}
	total := 0.0
	counted := 0
	for _, rec := range records {
		if rec.TotalCount == 0 {
			continue
		}
		total += rec.AvgLiveness
		counted++
	}
	if counted == 0 {
		return nil
	}
	avg := total / float64(counted)
	return &avg
}

// CurrentChallenge returns the slot open for submission.
func (e *Engine) CurrentChallenge(sessionID string) (*challenge.Slot, error) {
	sess, err := e.getActive(sessionID)
	if err != nil {
		return nil, err
	}
	slot, ok := sess.CurrentSlot()
	if !ok {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNoRemaining)
	}
	return slot, nil
}

// getActive loads a session and rejects anything not Active.
func (e *Engine) getActive(sessionID string) (*session.Session, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", sessionID, ErrInvalidSession)
		}
		return nil, err
	}
	if sess.State != session.StateActive {
		return nil, fmt.Errorf("%s is %s: %w", sessionID, sess.State, ErrInvalidSession)
	}
	return sess, nil
}
