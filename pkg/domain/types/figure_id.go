package types

import (
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

// FigureID is the canonical identifier of a public figure. It is derived from
// the display name by NormalizeFigureID.
type FigureID string

// NormalizeFigureID lower-cases name and strips whitespace, hyphens, periods
// and commas. "Song, Kang." and "Song Kang" both become "songkang".
func NormalizeFigureID(name string) FigureID {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsSpace(r), r == '-', r == '.', r == ',':
			continue
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return FigureID(sb.String())
}

// Validate checks that the ID is non-empty and already in normalized form
func (id FigureID) Validate() error {
	if id == "" {
		return goerr.New("figure ID cannot be empty")
	}
	if strings.ContainsRune(string(id), '/') {
		return goerr.New("figure ID must not contain '/'", goerr.V("id", id))
	}
	if NormalizeFigureID(string(id)) != id {
		return goerr.New("figure ID is not normalized", goerr.V("id", id))
	}
	return nil
}

func (id FigureID) String() string {
	return string(id)
}
