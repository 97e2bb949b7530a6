package ledger

import (
	"strings"
	"unicode"
)

// DuplicateThreshold is the similarity above which two topics are considered
// the same.
const DuplicateThreshold = 0.8

// Normalize lower-cases s and keeps only Unicode letters and digits.
func Normalize(s string) []rune {
	s = strings.ToLower(s)
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			out = append(out, r)
		}
	}
	return out
}

// Similarity is a positional character-match ratio between the normalized
// forms of a and b: runes equal at the same index over the shorter length,
// divided by the longer length. An empty normalized side yields 0.
//
// Reordered or shifted texts score low and short texts sharing a prefix score
// high. Callers rely on exactly this behaviour.
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	same := 0
	for i := 0; i < shorter; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(longer)
}
