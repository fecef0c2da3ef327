package challenge

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultCatalogGolden pins the full instruction table so that an
// accidental edit to a single instruction shows up in review.
func TestDefaultCatalogGolden(t *testing.T) {
	catalog := DefaultCatalog()

	var buf bytes.Buffer
	for _, kind := range Kinds {
		for _, difficulty := range Difficulties {
			text, err := catalog.Instruction(kind, difficulty)
			require.NoError(t, err)
			fmt.Fprintf(&buf, "%s/%s: %s\n", kind, difficulty, text)
		}
	}

	g := goldie.New(t)
	g.Assert(t, "catalog", buf.Bytes())
}

func TestCatalogCoversEveryCombination(t *testing.T) {
	catalog := DefaultCatalog()
	for _, kind := range Kinds {
		for _, difficulty := range Difficulties {
			text, err := catalog.Instruction(kind, difficulty)
			require.NoError(t, err, "%s/%s", kind, difficulty)
			assert.NotEmpty(t, text)
		}
	}
}

func TestCatalogExhausted(t *testing.T) {
	catalog := NewCatalog(map[Kind]map[Difficulty]string{
		KindBlink: {DifficultyEasy: "Blink once"},
	})

	_, err := catalog.Instruction(KindBlink, DifficultyHard)
	require.ErrorIs(t, err, ErrCatalogExhausted)

	_, err = catalog.Instruction(KindNod, DifficultyEasy)
	require.ErrorIs(t, err, ErrCatalogExhausted)
}
