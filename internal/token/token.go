// Package token implements language-aware tokenization and synonym
// expansion for the Korean/English card corpus.
package token

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Minimum token lengths. Indexing drops single characters as noise; query
// tokens keep them because a single Hangul syllable can be significant.
const (
	MinIndexLen = 2
	MinQueryLen = 1
)

// tokenRe extracts maximal runs of Hangul syllables, Latin letters, or
// digits. Mixed-script runs split at script boundaries.
var tokenRe = regexp.MustCompile(`[가-힣]+|[a-z]+|[0-9]+`)

// Tokenize splits text into ordered lowercase tokens, dropping tokens
// shorter than minLen runes.
func Tokenize(text string, minLen int) []string {
	if text == "" {
		return nil
	}
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if utf8.RuneCountInString(t) >= minLen {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
