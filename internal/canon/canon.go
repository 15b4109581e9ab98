// Package canon implements the canonicalization contract used to compare
// variable and model names throughout the simulation core: a pure, total,
// idempotent function from a display name (possibly quoted, mixed-case,
// containing internal whitespace) to the identifier used for all name
// lookups.
package canon

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lowerer = cases.Lower(language.Und)

// Name canonicalizes a display name for use in identifier comparisons: it
// strips one layer of surrounding double quotes (XMILE allows quoting names
// that contain spaces or reserved words), folds internal whitespace runs down
// to single spaces, and lower-cases the result in a Unicode-aware way.
//
// Name is pure, total, and idempotent: Name(Name(s)) == Name(s) for all s.
func Name(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	fields := strings.Fields(s)
	s = strings.Join(fields, " ")

	// two differently-composed but visually identical names (e.g. an
	// accented letter as one rune vs. letter+combining-mark) must compare
	// equal once canonicalized.
	s = norm.NFC.String(s)

	return lowerer.String(s)
}
