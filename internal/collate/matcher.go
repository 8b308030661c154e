package collate

import (
	"strings"
	"unicode"
)

// MatchThreshold is the similarity an overlay paragraph must exceed to be
// folded into an existing merged paragraph.
const MatchThreshold = 0.3

// TokenSet is the bag of distinct lower-cased words of a text.
type TokenSet map[string]struct{}

// Tokenize lower-cases text, drops every rune that is neither an ASCII word
// character nor whitespace, and splits the remainder on whitespace runs.
func Tokenize(text string) TokenSet {
	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	tokens := make(TokenSet)
	for _, word := range strings.Fields(b.String()) {
		tokens[word] = struct{}{}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Similarity is the Jaccard index of the token sets of a and b.
func Similarity(a, b string) float64 {
	return Jaccard(Tokenize(a), Tokenize(b))
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are a perfect match; one
// empty set matches nothing.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for word := range small {
		if _, ok := large[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
