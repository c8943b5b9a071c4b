// Package textsim scores how alike two recognised strings are.
//
// The score is a normalised Levenshtein similarity: the edit distance between
// the two strings (insert, delete and substitute each cost 1) divided by the
// rune length of the longer string and subtracted from 1. Identical strings
// score 1.0; strings that share nothing score 0.0.
package textsim

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Similarity returns the normalised edit-distance similarity of a and b in the
// range [0.0, 1.0]. Two empty strings are identical (1.0); an empty string
// compared with a non-empty one scores 0.0.
//
// Similarity is symmetric and safe for concurrent use. It runs in
// O(len(a)·len(b)) time.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(a, b))/float64(longest)
}

// Distance returns the Levenshtein distance between a and b measured in runes.
func Distance(a, b string) int {
	return matchr.Levenshtein(a, b)
}
