// Package folding maps dictionary headwords and queries to the normalized
// form used as the index key.
//
// The mapping is Unicode full case folding followed by canonical
// decomposition with combining marks removed: ü -> u, é -> e, ß -> ss.
// The same mapping is applied when a word is indexed and when a query is
// interpreted, so exact lookup is symmetric and fuzzy distances are
// computed over comparable strings.
package folding

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the index key for a word or query.
//
// Transformers carry internal state, so a fresh chain is built per call;
// Normalize is safe for concurrent use.
func Normalize(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}
