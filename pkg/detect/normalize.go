package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize canonicalizes captured text before matching. Platform-extracted
// text routinely arrives with full-width ASCII, compatibility Hangul forms
// and irregular whitespace; none of that may defeat a substring match, and
// none of the normalization may corrupt multi-byte characters.
//
// Steps: width folding (ＫＢ -> KB), NFKC compatibility normalization,
// case folding, whitespace-run collapsing.
func Normalize(text string) string {
	folded := width.Fold.String(text)
	normalized := norm.NFKC.String(folded)
	lowered := strings.ToLower(normalized)

	var b strings.Builder
	b.Grow(len(lowered))
	inSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteRune(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
