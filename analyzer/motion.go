package analyzer

import (
	"context"

	"github.com/certivo/certivo/challenge"
)

const (
	// frameSize is the chunk length treated as one frame of the sample.
	frameSize = 4096
	// maxFrames caps how much of the sample is profiled.
	maxFrames = 20
	// motionThreshold is the mean byte delta above which a frame pair
	// counts as motion.
	motionThreshold = 1.5
	// minMotionFrames is the minimum number of moving frame pairs for a
	// live sample.
	minMotionFrames = 5
)

// MotionAnalyzer is a coarse liveness heuristic over raw media bytes: it
// profiles frame-to-frame deltas and rejects samples with too little motion.
// It stands in for a real computer-vision pipeline behind the Analyzer
// contract.
type MotionAnalyzer struct{}

var _ Analyzer = (*MotionAnalyzer)(nil)

// NewMotionAnalyzer creates a MotionAnalyzer.
func NewMotionAnalyzer() *MotionAnalyzer {
	return &MotionAnalyzer{}
}

func (a *MotionAnalyzer) Analyze(ctx context.Context, media []byte, kind challenge.Kind) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	if len(media) == 0 {
		return Evaluation{FailureReason: ReasonEmptyMedia}, nil
	}

	motion := motionProfile(media)
	if motion < minMotionFrames {
		return Evaluation{FailureReason: ReasonInsufficientMotion}, nil
	}

	return Evaluation{
		Metrics: challenge.Metrics{
			Liveness:  0.95,
			LipSync:   0.9,
			Reaction:  1.0,
			Stability: 1.0,
		},
		Passed: true,
	}, nil
}

// motionProfile counts frame pairs whose mean absolute byte delta exceeds the
// motion threshold.
func motionProfile(media []byte) int {
	var prev []byte
	motion := 0
	for f := 0; f < maxFrames; f++ {
		start := f * frameSize
		if start >= len(media) {
			break
		}
		end := start + frameSize
		if end > len(media) {
			end = len(media)
		}
		frame := media[start:end]
		if prev != nil && meanDelta(prev, frame) > motionThreshold {
			motion++
		}
		prev = frame
	}
	return motion
}

func meanDelta(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	total := 0
	for i := 0; i < n; i++ {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return float64(total) / float64(n)
}
