// Package search executes dictionary queries against an opened index:
// exact lookup, bounded edit-distance lookup and prefix lookup, filtered
// by language direction and returned ranked and deduplicated.
package search

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/sagerenn/dictv/internal/folding"
	"github.com/sagerenn/dictv/internal/index"
)

// Language is a translation direction.
type Language string

const (
	EnDe Language = "en-de"
	DeEn Language = "de-en"
)

// ParseLanguage converts the user-facing tag into a Language.
func ParseLanguage(s string) (Language, error) {
	switch s {
	case string(EnDe):
		return EnDe, nil
	case string(DeEn):
		return DeEn, nil
	}
	return "", fmt.Errorf("%w: language %q", ErrInvalidArgument, s)
}

// Mode selects the retrieval strategy.
type Mode string

const (
	Exact  Mode = "exact"
	Fuzzy  Mode = "fuzzy"
	Prefix Mode = "prefix"
)

// ParseMode converts the user-facing mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case string(Exact):
		return Exact, nil
	case string(Fuzzy):
		return Fuzzy, nil
	case string(Prefix):
		return Prefix, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidArgument, s)
}

// MaxDistance is the largest edit distance a fuzzy query may request.
const MaxDistance = 2

// ErrInvalidArgument reports a caller contract violation; the query is not
// executed.
var ErrInvalidArgument = errors.New("invalid search argument")

// Result is one ranked query hit. EditDistance is set for fuzzy queries
// only, Score for fuzzy and prefix queries.
type Result struct {
	Word         string   `json:"word"`
	Definitions  []string `json:"definitions"`
	Language     Language `json:"language"`
	EditDistance *int     `json:"edit_distance,omitempty"`
	Score        *float64 `json:"score,omitempty"`
}

// Engine answers queries against one opened index. It is stateless per
// call and safe for concurrent use.
type Engine struct {
	ix *index.Index
}

// New returns an engine reading from ix.
func New(ix *index.Index) *Engine {
	return &Engine{ix: ix}
}

// Index exposes the underlying index for stats reporting.
func (e *Engine) Index() *index.Index {
	return e.ix
}

// Search normalizes the query and runs it in the given mode.
//
// An empty query short-circuits to an empty result list in every mode, as
// does limit 0. maxDistance outside 0..2 and negative limits are contract
// violations. Ranking happens after retrieval, so the underlying lookups
// over-fetch (10x the limit for fuzzy, 2x otherwise) before sorting and
// truncating.
func (e *Engine) Search(query string, mode Mode, lang Language, maxDistance, limit int) ([]Result, error) {
	if maxDistance < 0 || maxDistance > MaxDistance {
		return nil, fmt.Errorf("%w: max_distance %d out of range 0..%d",
			ErrInvalidArgument, maxDistance, MaxDistance)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidArgument, limit)
	}
	switch lang {
	case EnDe, DeEn:
	default:
		return nil, fmt.Errorf("%w: language %q", ErrInvalidArgument, lang)
	}
	switch mode {
	case Exact, Fuzzy, Prefix:
	default:
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidArgument, mode)
	}
	if limit == 0 {
		return nil, nil
	}

	q := folding.Normalize(query)
	if q == "" {
		return nil, nil
	}

	switch mode {
	case Fuzzy:
		return e.fuzzy(q, lang, maxDistance, limit), nil
	case Prefix:
		return e.prefix(q, lang, limit), nil
	default:
		return e.exact(q, lang), nil
	}
}

func (e *Engine) exact(q string, lang Language) []Result {
	for _, p := range e.ix.Lookup(q) {
		if p.Language != string(lang) {
			continue
		}
		return []Result{{
			Word:        p.Word,
			Definitions: p.Definitions,
			Language:    lang,
		}}
	}
	return nil
}

func (e *Engine) fuzzy(q string, lang Language, maxDistance, limit int) []Result {
	g := newGrouper()
	for _, m := range e.ix.FuzzyScan(q, maxDistance, limit*10) {
		if m.Posting.Language != string(lang) {
			continue
		}
		// The reported distance is recomputed here rather than trusted
		// from the scan, so it stays exact however the scan is
		// implemented.
		d := levenshtein.ComputeDistance(q, m.Posting.Term)
		g.add(m.Posting, &d, fuzzyScore(q, m.Posting.Term, d))
	}

	results := g.results()
	sort.SliceStable(results, func(i, j int) bool {
		di, dj := *results[i].EditDistance, *results[j].EditDistance
		if di != dj {
			return di < dj
		}
		return *results[i].Score > *results[j].Score
	})
	return truncate(results, limit)
}

func (e *Engine) prefix(q string, lang Language, limit int) []Result {
	g := newGrouper()
	for _, p := range e.ix.PrefixScan(q, limit*2) {
		if p.Language != string(lang) {
			continue
		}
		g.add(p, nil, prefixScore(q, p.Term))
	}

	results := g.results()
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].Score > *results[j].Score
	})
	return truncate(results, limit)
}

// fuzzyScore maps an edit distance to a matching-quality score in (0, 1]:
// identical strings score 1, each edit costs 1/len of the longer string.
func fuzzyScore(q, term string, d int) float64 {
	n := utf8.RuneCountInString(q)
	if t := utf8.RuneCountInString(term); t > n {
		n = t
	}
	if n == 0 {
		return 0
	}
	return 1 - float64(d)/float64(n)
}

// prefixScore rewards terms close in length to the prefix: the full word
// itself scores 1.
func prefixScore(prefix, term string) float64 {
	tlen := utf8.RuneCountInString(term)
	if tlen == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(prefix)) / float64(tlen)
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// grouper deduplicates hits by normalized word, keeping the minimum edit
// distance and maximum score seen per word, in discovery order.
type grouper struct {
	order  []string
	byTerm map[string]*Result
}

func newGrouper() *grouper {
	return &grouper{byTerm: make(map[string]*Result)}
}

func (g *grouper) add(p index.Posting, dist *int, score float64) {
	r, ok := g.byTerm[p.Term]
	if !ok {
		res := Result{
			Word:        p.Word,
			Definitions: p.Definitions,
			Language:    Language(p.Language),
			Score:       &score,
		}
		if dist != nil {
			d := *dist
			res.EditDistance = &d
		}
		g.byTerm[p.Term] = &res
		g.order = append(g.order, p.Term)
		return
	}
	if dist != nil && (r.EditDistance == nil || *dist < *r.EditDistance) {
		d := *dist
		r.EditDistance = &d
	}
	if score > *r.Score {
		*r.Score = score
	}
}

func (g *grouper) results() []Result {
	out := make([]Result, 0, len(g.order))
	for _, term := range g.order {
		out = append(out, *g.byTerm[term])
	}
	return out
}
