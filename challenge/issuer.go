package challenge

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/certivo/certivo/internal/util"
	"github.com/google/uuid"
)

const (
	// DefaultChallengeCount is the number of slots issued per session.
	DefaultChallengeCount = 3
	// DefaultMaxAttempts is the per-slot retry budget.
	DefaultMaxAttempts = 2
	// DefaultTimeLimit is the per-challenge completion window in seconds.
	DefaultTimeLimit = 7

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 32
)

// Issuer builds ordered challenge slot lists with adaptive difficulty.
// Trusted devices are fast-tracked: they still verify, but never receive a
// hard challenge.
type Issuer struct {
	catalog     *Catalog
	count       int
	maxAttempts int
	timeLimit   int
	randIntn    func(max int) (int, error)
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithChallengeCount sets how many slots a session receives.
func WithChallengeCount(n int) IssuerOption {
	return func(i *Issuer) { i.count = n }
}

// WithMaxAttempts sets the per-slot retry budget.
func WithMaxAttempts(n int) IssuerOption {
	return func(i *Issuer) { i.maxAttempts = n }
}

// WithTimeLimit sets the per-challenge completion window in seconds.
func WithTimeLimit(seconds int) IssuerOption {
	return func(i *Issuer) { i.timeLimit = seconds }
}

// WithRandIntn replaces the random source. Tests use this for deterministic
// kind and difficulty selection.
func WithRandIntn(fn func(max int) (int, error)) IssuerOption {
	return func(i *Issuer) { i.randIntn = fn }
}

// NewIssuer creates an Issuer over the given catalog.
func NewIssuer(catalog *Catalog, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		catalog:     catalog,
		count:       DefaultChallengeCount,
		maxAttempts: DefaultMaxAttempts,
		timeLimit:   DefaultTimeLimit,
		randIntn:    util.RandomIntn,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue builds the ordered slot list for a new session.
//
// Difficulty is chosen per slot: medium by default, hard when the device's
// prior average liveness exceeds 0.8, easy when it is below 0.5. A trusted
// device overrides the result with a random pick of easy or medium. Kind is
// drawn uniformly from Kinds for each slot; repeats within a session are
// permitted.
func (i *Issuer) Issue(priorAvgLiveness *float64, trusted bool) ([]Slot, error) {
	slots := make([]Slot, 0, i.count)
	for n := 0; n < i.count; n++ {
		difficulty, err := i.pickDifficulty(priorAvgLiveness, trusted)
		if err != nil {
			return nil, err
		}
		kind, err := i.pickKind()
		if err != nil {
			return nil, err
		}
		instruction, err := i.catalog.Instruction(kind, difficulty)
		if err != nil {
			return nil, err
		}
		token, err := NewBindingToken()
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{
			ChallengeID:  uuid.NewString(),
			Kind:         kind,
			Difficulty:   difficulty,
			Instruction:  instruction,
			TimeLimit:    i.timeLimit,
			MaxAttempts:  i.maxAttempts,
			BindingToken: token,
		})
	}
	return slots, nil
}

func (i *Issuer) pickDifficulty(priorAvgLiveness *float64, trusted bool) (Difficulty, error) {
	if trusted {
		n, err := i.randIntn(2)
		if err != nil {
			return "", fmt.Errorf("picking difficulty: %w", err)
		}
		return []Difficulty{DifficultyEasy, DifficultyMedium}[n], nil
	}
	if priorAvgLiveness != nil {
		switch {
		case *priorAvgLiveness > 0.8:
			return DifficultyHard, nil
		case *priorAvgLiveness < 0.5:
			return DifficultyEasy, nil
		}
	}
	return DifficultyMedium, nil
}

func (i *Issuer) pickKind() (Kind, error) {
	n, err := i.randIntn(len(Kinds))
	if err != nil {
		return "", fmt.Errorf("picking kind: %w", err)
	}
	return Kinds[n], nil
}

// NewBindingToken returns a fresh unguessable per-slot token. Possession of
// the token is required to submit against the slot.
func NewBindingToken() (string, error) {
	token, err := nanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("generating binding token: %w", err)
	}
	return token, nil
}
