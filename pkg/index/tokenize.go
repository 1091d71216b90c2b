package index

import (
	"strings"
	"unicode"
)

const minTokenLength = 2

// Tokenize normalizes text into matching tokens: lowercase, split on
// non-alphanumeric boundaries, tokens shorter than two characters dropped.
// No stemming, so tie-break ordering stays identical across runs and
// implementations.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLength {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// UniqueTokens tokenizes text and deduplicates the result, preserving
// first-occurrence order
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]bool, len(tokens))
	unique := tokens[:0]
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	return unique
}
