package challenge

import (
	"errors"
	"fmt"
)

// ErrCatalogExhausted indicates a (kind, difficulty) combination with no
// instruction text. This is a configuration error and is never retryable.
var ErrCatalogExhausted = errors.New("challenge catalog exhausted")

// Catalog maps (kind, difficulty) to the instruction text shown to the user.
// It is a pure lookup table with no state.
type Catalog struct {
	instructions map[Kind]map[Difficulty]string
}

// NewCatalog builds a catalog from the given instruction table.
func NewCatalog(instructions map[Kind]map[Difficulty]string) *Catalog {
	return &Catalog{instructions: instructions}
}

// DefaultCatalog returns the built-in instruction table covering every
// capability at every difficulty.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[Kind]map[Difficulty]string{
		KindSmile: {
			DifficultyEasy:   "Smile once",
			DifficultyMedium: "Smile twice",
			DifficultyHard:   "Smile and turn head",
		},
		KindBlink: {
			DifficultyEasy:   "Blink once",
			DifficultyMedium: "Blink twice",
			DifficultyHard:   "Blink rapidly twice",
		},
		KindHeadTurn: {
			DifficultyEasy:   "Turn head left",
			DifficultyMedium: "Turn head both sides",
			DifficultyHard:   "Rotate head full circle",
		},
		KindSpeakPhrase: {
			DifficultyEasy:   "Say 'Hi'",
			DifficultyMedium: "Say 'Hello there'",
			DifficultyHard:   "Say 'Verification challenge'",
		},
		KindNod: {
			DifficultyEasy:   "Nod once",
			DifficultyMedium: "Nod twice",
			DifficultyHard:   "Nod repeatedly",
		},
	})
}

// Instruction looks up the text for a kind at a difficulty.
func (c *Catalog) Instruction(kind Kind, difficulty Difficulty) (string, error) {
	byDifficulty, ok := c.instructions[kind]
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", kind, difficulty, ErrCatalogExhausted)
	}
	text, ok := byDifficulty[difficulty]
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", kind, difficulty, ErrCatalogExhausted)
	}
	return text, nil
}
