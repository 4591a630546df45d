package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FoldRunes returns s in matching form: NFKC normalized, lower-cased, every
// whitespace run collapsed to one space and both ends trimmed. Aliases and
// article bodies are folded the same way so that positions in the folded
// text can be compared rune by rune.
func FoldRunes(s string) []rune {
	s = norm.NFKC.String(s)
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = len(out) > 0
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

// Fold is FoldRunes as a string
func Fold(s string) string {
	return string(FoldRunes(s))
}

// splitAlias splits "A / B" style values into trimmed distinct tokens
func splitAlias(value string) []string {
	var tokens []string
	for _, part := range strings.Split(value, " / ") {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}
