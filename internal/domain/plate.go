package domain

import (
	"strings"
	"unicode"
)

// CanonicalPlate normalizes a license plate to its canonical form:
// uppercase with all whitespace removed. Every component that stores or
// compares plates must go through this first.
func CanonicalPlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range plate {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
