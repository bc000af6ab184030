package index

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Match is a posting found by a fuzzy scan together with the Levenshtein
// distance between the scanned term and the posting's term.
type Match struct {
	Posting  Posting
	Distance int
}

// Lookup returns every posting whose term equals the given normalized word.
// At most one posting exists per language direction.
func (ix *Index) Lookup(term string) []Posting {
	lo := sort.SearchStrings(ix.terms, term)
	hi := lo
	for hi < len(ix.terms) && ix.terms[hi] == term {
		hi++
	}
	if lo == hi {
		return nil
	}
	return ix.postings[lo:hi:hi]
}

// PrefixScan returns postings whose term starts with the given normalized
// prefix, in term order. A limit <= 0 returns all of them.
func (ix *Index) PrefixScan(prefix string, limit int) []Posting {
	start := sort.SearchStrings(ix.terms, prefix)
	var out []Posting
	for i := start; i < len(ix.terms); i++ {
		if !strings.HasPrefix(ix.terms[i], prefix) {
			break
		}
		out = append(out, ix.postings[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FuzzyScan returns postings whose term is within maxDistance Levenshtein
// edits (insertions, deletions, substitutions) of the given normalized
// word, in term order. A limit <= 0 returns all of them.
//
// The scan is linear over the term array with a rune-length pruning step;
// it returns the same result set as a naive scan by construction. Term
// counts here are dictionary-sized (a few hundred thousand), which keeps
// the linear scan well inside interactive latency.
func (ix *Index) FuzzyScan(term string, maxDistance int, limit int) []Match {
	qlen := utf8.RuneCountInString(term)
	var out []Match
	for i := range ix.postings {
		tlen := utf8.RuneCountInString(ix.terms[i])
		if diff := tlen - qlen; diff > maxDistance || -diff > maxDistance {
			continue
		}
		d := levenshtein.ComputeDistance(term, ix.terms[i])
		if d > maxDistance {
			continue
		}
		out = append(out, Match{Posting: ix.postings[i], Distance: d})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Stats holds aggregate counts over the committed index.
type Stats struct {
	Total      int
	ByLanguage map[string]int
}

// Stats counts postings in total and per language direction.
func (ix *Index) Stats() Stats {
	s := Stats{
		Total:      len(ix.postings),
		ByLanguage: make(map[string]int),
	}
	for i := range ix.postings {
		s.ByLanguage[ix.postings[i].Language]++
	}
	return s
}
