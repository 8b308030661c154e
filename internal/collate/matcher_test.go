package collate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Run("Should lower-case, strip punctuation and deduplicate", func(t *testing.T) {
		tokens := Tokenize("The cat, the CAT; the hat!")
		assert.Equal(t, TokenSet{"the": {}, "cat": {}, "hat": {}}, tokens)
	})

	t.Run("Should drop runs of whitespace", func(t *testing.T) {
		tokens := Tokenize("  one\t\ttwo\n three  ")
		assert.Len(t, tokens, 3)
	})

	t.Run("Should join words split only by punctuation", func(t *testing.T) {
		tokens := Tokenize("well-known don't")
		assert.Equal(t, TokenSet{"wellknown": {}, "dont": {}}, tokens)
	})

	t.Run("Should keep digits and underscores", func(t *testing.T) {
		tokens := Tokenize("clause_4 section 12.3")
		assert.Equal(t, TokenSet{"clause_4": {}, "section": {}, "123": {}}, tokens)
	})

	t.Run("Should return an empty set for punctuation only", func(t *testing.T) {
		assert.Empty(t, Tokenize("... --- !!!"))
	})
}

func TestSimilarity(t *testing.T) {
	t.Run("Should score identical non-empty text as 1", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("The party shall indemnify.", "The party shall indemnify."))
	})

	t.Run("Should treat two empty texts as a perfect match", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("", ""))
		assert.Equal(t, 1.0, Similarity("!!", "  "))
	})

	t.Run("Should score one empty side as 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("x", ""))
		assert.Equal(t, 0.0, Similarity("", "x"))
	})

	t.Run("Should be intersection over union", func(t *testing.T) {
		assert.Equal(t, 0.5, Similarity("the cat sat", "the dog sat"))
		assert.Equal(t, 0.3, Similarity("a b c d e f", "a b c g h i j"))
	})

	t.Run("Should ignore case and punctuation", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("Hello, World!", "hello world"))
	})

	t.Run("Should ignore word order and repetition", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("alpha beta gamma", "gamma gamma alpha beta"))
	})

	t.Run("Should be symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"the cat sat", "the dog sat"},
			{"Hello, World!", "world peace"},
			{"", "something"},
			{"one two three four", "four five"},
		}
		for _, pair := range pairs {
			assert.Equal(t, Similarity(pair[0], pair[1]), Similarity(pair[1], pair[0]), "pair %q", pair)
		}
	})

	t.Run("Should score disjoint texts as 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("alpha beta", "gamma delta"))
	})
}
