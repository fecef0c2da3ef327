// Package analyzer defines the signal analyzer boundary: the component that
// turns a captured media sample into a normalized evaluation. Real biometric
// analysis lives behind this interface; the engine only depends on the
// contract.
package analyzer

import (
	"context"

	"github.com/certivo/certivo/challenge"
)

// Failure reasons reported on a non-passing evaluation.
const (
	ReasonEmptyMedia         = "empty_media"
	ReasonInsufficientMotion = "insufficient_motion"
)

// Evaluation is the normalized result of analyzing one media sample. It is
// transient: the engine copies Metrics onto the slot and discards the rest.
type Evaluation struct {
	challenge.Metrics
	Passed        bool
	FailureReason string
}

// Analyzer evaluates a media sample against a challenge kind. Implementations
// must be safe for repeated concurrent calls and must not retain state across
// calls. A returned error is transient: the caller may retry the submission
// without having consumed an attempt.
type Analyzer interface {
	Analyze(ctx context.Context, media []byte, kind challenge.Kind) (Evaluation, error)
}

// Func adapts a function to the Analyzer interface.
type Func func(ctx context.Context, media []byte, kind challenge.Kind) (Evaluation, error)

func (f Func) Analyze(ctx context.Context, media []byte, kind challenge.Kind) (Evaluation, error) {
	return f(ctx, media, kind)
}
