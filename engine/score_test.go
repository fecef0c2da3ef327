package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certivo/certivo/challenge"
)

func slotWith(m challenge.Metrics, difficulty challenge.Difficulty, passed bool) challenge.Slot {
	return challenge.Slot{
		Kind:       challenge.KindBlink,
		Difficulty: difficulty,
		Metrics:    m,
		Passed:     passed,
		Consumed:   true,
	}
}

func strongMetrics() challenge.Metrics {
	return challenge.Metrics{Liveness: 0.9, LipSync: 0.9, Reaction: 1.0, Stability: 1.0, BlinkCount: 2}
}

func TestChallengeTrust(t *testing.T) {
	// 0.9*0.35 + 0.9*0.25 + 1.0*0.15 + 1.0*0.15 = 0.84, no blink penalty.
	got := challengeTrust(slotWith(strongMetrics(), challenge.DifficultyMedium, true))
	assert.InDelta(t, 0.84, got, 1e-9)
}

func TestChallengeTrustDifficultyWeight(t *testing.T) {
	easy := challengeTrust(slotWith(strongMetrics(), challenge.DifficultyEasy, true))
	hard := challengeTrust(slotWith(strongMetrics(), challenge.DifficultyHard, true))
	assert.InDelta(t, 0.84*0.8, easy, 1e-9)
	assert.InDelta(t, 0.84*1.2, hard, 1e-9)
}

func TestChallengeTrustBlinkPenalty(t *testing.T) {
	m := strongMetrics()

	m.BlinkCount = 5
	assert.InDelta(t, 0.84, challengeTrust(slotWith(m, challenge.DifficultyMedium, true)), 1e-9)

	m.BlinkCount = 10
	assert.InDelta(t, 0.84-0.1, challengeTrust(slotWith(m, challenge.DifficultyMedium, true)), 1e-9)

	// Penalty is capped at 0.2 no matter how excessive the blinking.
	m.BlinkCount = 50
	assert.InDelta(t, 0.84-0.2, challengeTrust(slotWith(m, challenge.DifficultyMedium, true)), 1e-9)
}

func TestChallengeTrustClampsMetrics(t *testing.T) {
	m := challenge.Metrics{Liveness: 1.7, LipSync: -0.3, Reaction: 1.0, Stability: 1.0}
	// Liveness clamps to 1, lip sync to 0.
	want := 1.0*weightLiveness + 0 + 1.0*weightReaction + 1.0*weightStability
	assert.InDelta(t, want, challengeTrust(slotWith(m, challenge.DifficultyMedium, true)), 1e-9)
}

func TestScoreSessionTwoPassedOneFailed(t *testing.T) {
	consumed := []challenge.Slot{
		slotWith(strongMetrics(), challenge.DifficultyMedium, true),
		slotWith(strongMetrics(), challenge.DifficultyMedium, true),
		slotWith(challenge.Metrics{}, challenge.DifficultyMedium, false),
	}

	result := scoreSession(consumed)
	// Mean (0.84+0.84+0)/3 = 0.56 -> 56, minus 10 for one failure.
	assert.InDelta(t, 46, result.TrustScore, 1e-9)
	assert.Equal(t, LevelLow, result.TrustLevel)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, 3, result.TotalCount)
}

func TestScoreSessionFloor(t *testing.T) {
	failed := challenge.Slot{Difficulty: challenge.DifficultyMedium, Consumed: true}
	result := scoreSession([]challenge.Slot{failed, failed, failed})
	assert.InDelta(t, scoreFloor, result.TrustScore, 1e-9)
	assert.Equal(t, LevelLow, result.TrustLevel)
	assert.Equal(t, 3, result.FailedCount)
}

func TestFailurePenaltySteps(t *testing.T) {
	assert.InDelta(t, 0, failurePenalty(0), 1e-9)
	assert.InDelta(t, 10, failurePenalty(1), 1e-9)
	assert.InDelta(t, 25, failurePenalty(2), 1e-9)
	assert.InDelta(t, 40, failurePenalty(3), 1e-9)
	assert.InDelta(t, 40, failurePenalty(7), 1e-9)
}

func TestLevelBoundaries(t *testing.T) {
	assert.Equal(t, LevelHigh, levelFor(85))
	assert.Equal(t, LevelMedium, levelFor(84.99))
	assert.Equal(t, LevelMedium, levelFor(60))
	assert.Equal(t, LevelLow, levelFor(59.99))
}

func TestAvgLiveness(t *testing.T) {
	consumed := []challenge.Slot{
		slotWith(challenge.Metrics{Liveness: 0.8}, challenge.DifficultyMedium, true),
		slotWith(challenge.Metrics{Liveness: 0.6}, challenge.DifficultyMedium, false),
	}
	assert.InDelta(t, 0.7, avgLiveness(consumed), 1e-9)
	assert.Zero(t, avgLiveness(nil))
}
