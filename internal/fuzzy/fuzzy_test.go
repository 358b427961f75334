package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordSet_Normalization(t *testing.T) {
	kw := KeywordSet("Sherwood Ledgestone 3-Pc. Design Kit")

	assert.True(t, kw["sherwood"])
	assert.True(t, kw["ledgestone"])
	// "3" is pure numeric, "pc", "design", "kit" are stop words
	assert.False(t, kw["3"])
	assert.False(t, kw["pc"])
	assert.False(t, kw["design"])
	assert.False(t, kw["kit"])
}

func TestKeywordSet_Synonyms(t *testing.T) {
	kw := KeywordSet("Equine Grey Blanket")

	assert.True(t, kw["horse"])
	assert.True(t, kw["gray"])
	assert.False(t, kw["equine"])
	assert.False(t, kw["grey"])
}

func TestKeywordSet_DropsShortAndNumericTokens(t *testing.T) {
	kw := KeywordSet("a 12 XL 6x9 wall")

	assert.False(t, kw["a"])
	assert.False(t, kw["12"])
	assert.True(t, kw["xl"])
	assert.True(t, kw["6x9"]) // mixed alphanumeric is kept
	assert.True(t, kw["wall"])
}

func TestScore_Bounds(t *testing.T) {
	candidates := []string{
		"Sherwood Ledgestone 3-Pc. Design Kit",
		"Totally Unrelated Product",
		"",
		"Ledgestone",
	}
	query := KeywordSet("Sherwood Ledgestone 3-Pc Kit")

	for _, c := range candidates {
		s := Score(KeywordSet(c), query)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScore_EmptyQueryIsZero(t *testing.T) {
	candidate := KeywordSet("Sherwood Ledgestone")
	assert.Equal(t, 0.0, Score(candidate, KeywordSet("")))
	assert.Equal(t, 0.0, Score(candidate, KeywordSet("3 12 99")))
}

func TestScore_RecallOriented(t *testing.T) {
	// Extra candidate terms do not lower the score.
	query := KeywordSet("Ledgestone Wall")
	short := Score(KeywordSet("Ledgestone Wall"), query)
	verbose := Score(KeywordSet("Ledgestone Wall Premium Outdoor Living Module Deluxe"), query)

	assert.Equal(t, 1.0, short)
	assert.Equal(t, 1.0, verbose)
}

func TestScore_PartialOverlap(t *testing.T) {
	query := KeywordSet("sherwood ledgestone wall stone")
	candidate := KeywordSet("sherwood ledgestone")

	assert.InDelta(t, 0.5, Score(candidate, query), 1e-9)
}
