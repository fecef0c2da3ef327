package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/certivo/certivo/engine"
)

const (
	// maxJSONBodySize bounds JSON request bodies.
	maxJSONBodySize = 64 << 10
	// maxMediaBodySize bounds a multipart submission, media clip included.
	maxMediaBodySize = 16 << 20
)

// decodeJSON reads and decodes a JSON request body into T, writing a 400
// response and returning ok=false on failure.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return v, false
	}
	return v, true
}

// StartSession handles POST /sessions.
// Fingerprints the device, consults the trust cache, and issues a fresh
// challenge sequence.
func (a *API) StartSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[StartSessionRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	sess, trusted, err := a.engine.StartSession(r.Context(), req.DeviceID, r.UserAgent())
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logSession(AuditSessionStarted, r, sess.ID,
		slog.String("fingerprint", sess.Fingerprint),
		slog.Bool("trusted_device", trusted),
		slog.Int("challenge_count", len(sess.Challenges)))
	writeJSON(w, http.StatusCreated, startSessionResponse(sess, trusted))
}

// CurrentChallenge handles GET /sessions/{sessionID}/challenge.
func (a *API) CurrentChallenge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	slot, err := a.engine.CurrentChallenge(sessionID)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logSession(AuditChallengeFetched, r, sessionID,
		slog.String("challenge_id", slot.ChallengeID))
	writeJSON(w, http.StatusOK, challengeView(slot))
}

// Submit handles POST /sessions/{sessionID}/submissions.
// Expects a multipart form with challenge_id, binding_token, and a media part.
func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if blocked, retryAfter := a.limiter.check(sessionID); blocked {
		a.audit.logRejection(AuditSubmissionRateLimit, r, sessionID, "rate limited")
		writeRateLimited(w, retryAfter)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMediaBodySize)
	if err := r.ParseMultipartForm(maxMediaBodySize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	challengeID := r.FormValue("challenge_id")
	bindingToken := r.FormValue("binding_token")
	if challengeID == "" || bindingToken == "" {
		writeError(w, http.StatusBadRequest, "challenge_id and binding_token are required")
		return
	}

	file, _, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "media part is required")
		return
	}
	defer file.Close()

	media, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read media part")
		return
	}

	res, err := a.engine.SubmitEvaluation(r.Context(), sessionID, challengeID, bindingToken, media)
	if err != nil {
		if errors.Is(err, engine.ErrReplayDetected) {
			a.limiter.recordRejection(sessionID)
			a.audit.logRejection(AuditReplayDetected, r, sessionID, err.Error(),
				slog.String("challenge_id", challengeID))
		} else if isProtocolViolation(err) {
			a.limiter.recordRejection(sessionID)
			a.audit.logRejection(AuditSubmissionRejected, r, sessionID, err.Error(),
				slog.String("challenge_id", challengeID))
		} else if errors.Is(err, engine.ErrAnalyzerUnavailable) {
			a.audit.logRejection(AuditAnalyzerUnavailable, r, sessionID, err.Error())
		}
		mapError(w, err)
		return
	}

	a.limiter.recordAccepted(sessionID)
	event := AuditSubmissionPassed
	if !res.Passed {
		event = AuditSubmissionFailed
	}
	a.audit.logSession(event, r, sessionID,
		slog.String("challenge_id", challengeID),
		slog.Int("attempts_used", res.AttemptsUsed),
		slog.Int("retries_left", res.RetriesLeft))
	writeJSON(w, http.StatusOK, submitResponse(res))
}

// isProtocolViolation reports whether the submission was turned away for
// breaking the session protocol, as opposed to failing the challenge itself.
func isProtocolViolation(err error) bool {
	return errors.Is(err, engine.ErrOutOfOrder) ||
		errors.Is(err, engine.ErrAlreadyConsumed) ||
		errors.Is(err, engine.ErrInvalidToken)
}

// Finalize handles POST /sessions/{sessionID}/finalize.
func (a *API) Finalize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	res, err := a.engine.Finalize(r.Context(), sessionID)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logSession(AuditSessionFinalized, r, sessionID,
		slog.Float64("trust_score", res.TrustScore),
		slog.String("trust_level", string(res.TrustLevel)),
		slog.Int("failed_count", res.FailedCount))
	writeJSON(w, http.StatusOK, finalizeResponse(sessionID, res))
}

// ListReports handles GET /reports.
// An optional fingerprint query parameter narrows the listing to one device.
func (a *API) ListReports(w http.ResponseWriter, r *http.Request) {
	if a.reports == nil {
		writeError(w, http.StatusNotImplemented, "report log not configured")
		return
	}

	fingerprint := r.URL.Query().Get("fingerprint")
	recs, err := a.reports.List(r.Context(), fingerprint)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditReportsQueried, r, slog.Int("count", len(recs)))
	writeJSON(w, http.StatusOK, listReportsResponse(recs))
}
