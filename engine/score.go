package engine

import (
	"math"

	"github.com/certivo/certivo/challenge"
)

// Trust score weighting. The four signal weights sum to 0.9; the remaining
// headroom absorbs the blink penalty.
const (
	weightLiveness  = 0.35
	weightLipSync   = 0.25
	weightReaction  = 0.15
	weightStability = 0.15

	// Blinking above the threshold mildly discounts trust, capped.
	blinkThreshold   = 5
	blinkPenaltyStep = 0.02
	blinkPenaltyCap  = 0.2

	// Scores are clamped to [30,100]; the floor keeps a zero-trust session
	// distinguishable from an error.
	scoreFloor = 30.0
	scoreCeil  = 100.0

	levelHighMin   = 85.0
	levelMediumMin = 60.0
)

// difficultyWeights scale a challenge's trust contribution by how demanding
// the instruction was.
var difficultyWeights = map[challenge.Difficulty]float64{
	challenge.DifficultyEasy:   0.8,
	challenge.DifficultyMedium: 1.0,
	challenge.DifficultyHard:   1.2,
}

// Level buckets a trust score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// TrustResult is the immutable outcome of finalizing a session.
type TrustResult struct {
	TrustScore  float64 `json:"trust_score"`
	TrustLevel  Level   `json:"trust_level"`
	FailedCount int     `json:"failed_count"`
	TotalCount  int     `json:"total_count"`
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// challengeTrust computes one consumed slot's trust contribution.
func challengeTrust(slot challenge.Slot) float64 {
	m := slot.Metrics
	blinkPenalty := math.Min(math.Max(float64(m.BlinkCount-blinkThreshold), 0)*blinkPenaltyStep, blinkPenaltyCap)

	score := clamp01(m.Liveness)*weightLiveness +
		clamp01(m.LipSync)*weightLipSync +
		clamp01(m.Reaction)*weightReaction +
		clamp01(m.Stability)*weightStability -
		blinkPenalty

	weight, ok := difficultyWeights[slot.Difficulty]
	if !ok {
		weight = 1.0
	}
	return score * weight
}

// failurePenalty maps the failed-slot count to a score deduction.
func failurePenalty(failed int) float64 {
	switch {
	case failed >= 3:
		return 40
	case failed == 2:
		return 25
	case failed == 1:
		return 10
	default:
		return 0
	}
}

func levelFor(score float64) Level {
	switch {
	case score >= levelHighMin:
		return LevelHigh
	case score >= levelMediumMin:
		return LevelMedium
	default:
		return LevelLow
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// scoreSession aggregates consumed slots into the session trust result.
func scoreSession(consumed []challenge.Slot) TrustResult {
	total := 0.0
	failed := 0
	for _, slot := range consumed {
		total += challengeTrust(slot)
		if !slot.Passed {
			failed++
		}
	}

	base := total / float64(len(consumed))
	score := round2(math.Max(scoreFloor, math.Min(scoreCeil, base*100)))
	score = math.Max(scoreFloor, score-failurePenalty(failed))

	return TrustResult{
		TrustScore:  score,
		TrustLevel:  levelFor(score),
		FailedCount: failed,
		TotalCount:  len(consumed),
	}
}

// avgLiveness is the mean retained liveness over consumed slots, feeding the
// next session's adaptive difficulty.
func avgLiveness(consumed []challenge.Slot) float64 {
	if len(consumed) == 0 {
		return 0
	}
	total := 0.0
	for _, slot := range consumed {
		total += clamp01(slot.Metrics.Liveness)
	}
	return total / float64(len(consumed))
}
