package search

import (
	"strings"
	"unicode"
)

// tokenize lowercases and splits text into word tokens, dropping short
// stop-ish tokens that would inflate keyword overlap.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// keywordOverlap scores how many distinct query tokens appear in the text,
// normalized by the query's distinct token count. Range [0, 1].
func keywordOverlap(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	distinct := make(map[string]bool, len(queryTokens))
	for _, token := range queryTokens {
		distinct[token] = true
	}

	textTokens := make(map[string]bool)
	for _, token := range tokenize(text) {
		textTokens[token] = true
	}

	matched := 0
	for token := range distinct {
		if textTokens[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(distinct))
}
