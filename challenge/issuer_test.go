package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand returns a randIntn that yields the given sequence, wrapping.
func fixedRand(seq ...int) func(int) (int, error) {
	i := 0
	return func(max int) (int, error) {
		n := seq[i%len(seq)] % max
		i++
		return n, nil
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestIssueDefaults(t *testing.T) {
	issuer := NewIssuer(DefaultCatalog())

	slots, err := issuer.Issue(nil, false)
	require.NoError(t, err)
	require.Len(t, slots, DefaultChallengeCount)

	seen := map[string]bool{}
	for _, slot := range slots {
		assert.Equal(t, DifficultyMedium, slot.Difficulty)
		assert.NotEmpty(t, slot.ChallengeID)
		assert.NotEmpty(t, slot.Instruction)
		assert.Len(t, slot.BindingToken, tokenLength)
		assert.Equal(t, DefaultMaxAttempts, slot.MaxAttempts)
		assert.Equal(t, DefaultTimeLimit, slot.TimeLimit)
		assert.Zero(t, slot.Attempts)
		assert.False(t, slot.Passed)
		assert.False(t, slot.Consumed)

		assert.False(t, seen[slot.ChallengeID], "challenge IDs must be unique")
		assert.False(t, seen[slot.BindingToken], "binding tokens must be unique")
		seen[slot.ChallengeID] = true
		seen[slot.BindingToken] = true
	}
}

func TestIssueAdaptiveDifficulty(t *testing.T) {
	tests := []struct {
		name  string
		prior *float64
		want  Difficulty
	}{
		{"no prior", nil, DifficultyMedium},
		{"high prior", floatPtr(0.81), DifficultyHard},
		{"boundary prior", floatPtr(0.8), DifficultyMedium},
		{"low prior", floatPtr(0.49), DifficultyEasy},
		{"boundary low", floatPtr(0.5), DifficultyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := NewIssuer(DefaultCatalog(), WithRandIntn(fixedRand(0)))
			slots, err := issuer.Issue(tt.prior, false)
			require.NoError(t, err)
			for _, slot := range slots {
				assert.Equal(t, tt.want, slot.Difficulty)
			}
		})
	}
}

// Trusted devices never receive hard challenges, even when their prior
// liveness would otherwise force hard.
func TestIssueTrustedNeverHard(t *testing.T) {
	issuer := NewIssuer(DefaultCatalog(), WithChallengeCount(50))

	slots, err := issuer.Issue(floatPtr(0.95), true)
	require.NoError(t, err)
	require.Len(t, slots, 50)
	for _, slot := range slots {
		assert.NotEqual(t, DifficultyHard, slot.Difficulty)
	}
}

func TestIssueTrustedPicksEasyOrMedium(t *testing.T) {
	easy := NewIssuer(DefaultCatalog(), WithRandIntn(fixedRand(0)))
	slots, err := easy.Issue(nil, true)
	require.NoError(t, err)
	assert.Equal(t, DifficultyEasy, slots[0].Difficulty)

	medium := NewIssuer(DefaultCatalog(), WithRandIntn(fixedRand(1)))
	slots, err = medium.Issue(nil, true)
	require.NoError(t, err)
	assert.Equal(t, DifficultyMedium, slots[0].Difficulty)
}

func TestIssueKindSelection(t *testing.T) {
	issuer := NewIssuer(DefaultCatalog(),
		WithRandIntn(fixedRand(0, 1, 2)),
		WithChallengeCount(3))

	slots, err := issuer.Issue(nil, false)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, KindBlink, slots[0].Kind)
	assert.Equal(t, KindHeadTurn, slots[1].Kind)
	assert.Equal(t, KindSmile, slots[2].Kind)
}

func TestIssueCatalogExhausted(t *testing.T) {
	partial := NewCatalog(map[Kind]map[Difficulty]string{
		KindBlink: {DifficultyEasy: "Blink once"},
	})
	issuer := NewIssuer(partial, WithRandIntn(fixedRand(0)))

	_, err := issuer.Issue(nil, false)
	require.ErrorIs(t, err, ErrCatalogExhausted)
}

func TestRetriesLeft(t *testing.T) {
	slot := Slot{Attempts: 0, MaxAttempts: 2}
	assert.Equal(t, 2, slot.RetriesLeft())

	slot.Attempts = 1
	assert.Equal(t, 1, slot.RetriesLeft())

	slot.Attempts = 2
	assert.Equal(t, 0, slot.RetriesLeft())

	slot = Slot{Attempts: 1, MaxAttempts: 2, Consumed: true}
	assert.Equal(t, 0, slot.RetriesLeft())
}
