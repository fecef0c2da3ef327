package api

import (
	"github.com/certivo/certivo/challenge"
	"github.com/certivo/certivo/engine"
	"github.com/certivo/certivo/report"
	"github.com/certivo/certivo/session"
)

// StartSessionRequest begins a verification session for a device.
type StartSessionRequest struct {
	DeviceID string `json:"device_id"`
}

// ChallengeView is the client-facing projection of a challenge slot.
// Scoring metrics and pass state stay server-side.
type ChallengeView struct {
	ChallengeID  string `json:"challenge_id"`
	Kind         string `json:"kind"`
	Difficulty   string `json:"difficulty"`
	Instruction  string `json:"instruction"`
	TimeLimit    int    `json:"time_limit_seconds"`
	BindingToken string `json:"binding_token"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"max_attempts"`
}

func challengeView(slot *challenge.Slot) ChallengeView {
	return ChallengeView{
		ChallengeID:  slot.ChallengeID,
		Kind:         string(slot.Kind),
		Difficulty:   string(slot.Difficulty),
		Instruction:  slot.Instruction,
		TimeLimit:    slot.TimeLimit,
		BindingToken: slot.BindingToken,
		Attempts:     slot.Attempts,
		MaxAttempts:  slot.MaxAttempts,
	}
}

// StartSessionResponse is returned on session creation.
type StartSessionResponse struct {
	SessionID      string        `json:"session_id"`
	State          string        `json:"state"`
	ExpiresAt      string        `json:"expires_at"`
	TrustedDevice  bool          `json:"trusted_device"`
	ChallengeCount int           `json:"challenge_count"`
	Challenge      ChallengeView `json:"challenge"`
}

func startSessionResponse(sess *session.Session, trusted bool) StartSessionResponse {
	slot, _ := sess.CurrentSlot()
	return StartSessionResponse{
		SessionID:      sess.ID,
		State:          string(sess.State),
		ExpiresAt:      sess.ExpiresAt.Format(timeFormat),
		TrustedDevice:  trusted,
		ChallengeCount: len(sess.Challenges),
		Challenge:      challengeView(slot),
	}
}

// SubmitResponse describes the outcome of one challenge submission.
// Clients fetch the next challenge separately when next_available is set.
type SubmitResponse struct {
	Passed        bool `json:"passed"`
	AttemptsUsed  int  `json:"attempts_used"`
	RetriesLeft   int  `json:"retries_left"`
	NextAvailable bool `json:"next_available"`
}

func submitResponse(res *engine.SubmitResult) SubmitResponse {
	return SubmitResponse{
		Passed:        res.Passed,
		AttemptsUsed:  res.AttemptsUsed,
		RetriesLeft:   res.RetriesLeft,
		NextAvailable: res.NextAvailable,
	}
}

// FinalizeResponse carries the trust verdict for a finished session.
type FinalizeResponse struct {
	SessionID   string  `json:"session_id"`
	TrustScore  float64 `json:"trust_score"`
	TrustLevel  string  `json:"trust_level"`
	FailedCount int     `json:"failed_count"`
	TotalCount  int     `json:"total_count"`
}

func finalizeResponse(sessionID string, res *engine.TrustResult) FinalizeResponse {
	return FinalizeResponse{
		SessionID:   sessionID,
		TrustScore:  res.TrustScore,
		TrustLevel:  string(res.TrustLevel),
		FailedCount: res.FailedCount,
		TotalCount:  res.TotalCount,
	}
}

// ReportView is one finalized session in the analytics listing.
type ReportView struct {
	SessionID   string  `json:"session_id"`
	Fingerprint string  `json:"fingerprint"`
	TrustScore  float64 `json:"trust_score"`
	TrustLevel  string  `json:"trust_level"`
	FailedCount int     `json:"failed_count"`
	TotalCount  int     `json:"total_count"`
	AvgLiveness float64 `json:"avg_liveness"`
	CreatedAt   string  `json:"created_at"`
}

// ListReportsResponse wraps the analytics listing.
type ListReportsResponse struct {
	Reports []ReportView `json:"reports"`
}

func listReportsResponse(recs []report.Record) ListReportsResponse {
	out := ListReportsResponse{Reports: make([]ReportView, 0, len(recs))}
	for _, rec := range recs {
		out.Reports = append(out.Reports, ReportView{
			SessionID:   rec.SessionID,
			Fingerprint: rec.Fingerprint,
			TrustScore:  rec.TrustScore,
			TrustLevel:  rec.TrustLevel,
			FailedCount: rec.FailedCount,
			TotalCount:  rec.TotalCount,
			AvgLiveness: rec.AvgLiveness,
			CreatedAt:   rec.CreatedAt.Format(timeFormat),
		})
	}
	return out
}
