package keyword

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized terms: case-folded, punctuation
// stripped, whitespace separated. The same function is applied to stored
// chunk text and to queries so terms always compare equal.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.ToLower(field)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
