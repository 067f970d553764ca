// Package match decides whether a candidate title answers a query
package match

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/streambinder/hymnal/entity"
	"golang.org/x/text/unicode/norm"
)

// Unranked is the position given to matches that are not
// literal substrings of the title, so they sort last
const Unranked = 999

// Result tells where in the title a query matched
type Result struct {
	Position int  // rune offset of the match in the normalized title
	Exact    bool // query is a literal substring of the title
}

// Matcher accepts or rejects a title for a query
type Matcher interface {
	Match(query, title string) (Result, bool)
}

// Normalize composes, drops whitespace and lower-cases s
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, norm.NFC.String(s))
}

// Substring accepts only titles literally containing the query
type Substring struct{}

func (Substring) Match(query, title string) (Result, bool) {
	return substring(Normalize(query), Normalize(title))
}

func substring(query, title string) (Result, bool) {
	idx := strings.Index(title, query)
	if idx < 0 {
		return Result{Position: Unranked}, false
	}
	return Result{Position: len([]rune(title[:idx])), Exact: true}, true
}

// LongestRun accepts substrings and titles sharing a contiguous run
// with the query that covers at least Ratio of it, provided the query
// is MinLength runes or more
type LongestRun struct {
	Ratio     float64
	MinLength int
}

func DefaultLongestRun() LongestRun {
	return LongestRun{Ratio: 0.6, MinLength: 3}
}

func (m LongestRun) Match(query, title string) (Result, bool) {
	q, t := Normalize(query), Normalize(title)
	if result, ok := substring(q, t); ok {
		return result, true
	}
	qr := []rune(q)
	if len(qr) < m.MinLength {
		return Result{Position: Unranked}, false
	}
	run := longestCommonRun(qr, []rune(t))
	return Result{Position: Unranked}, float64(run) >= float64(len(qr))*m.Ratio
}

// longestCommonRun returns the length of the longest contiguous
// sequence of runes shared by a and b
func longestCommonRun(a, b []rune) int {
	var (
		best int
		prev = make([]int, len(b)+1)
		curr = make([]int, len(b)+1)
	)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}

// EditDistance accepts titles having a window within MaxRatio
// edits of the query length
type EditDistance struct {
	MaxRatio  float64
	MinLength int
}

func (m EditDistance) Match(query, title string) (Result, bool) {
	q, t := Normalize(query), Normalize(title)
	if result, ok := substring(q, t); ok {
		return result, true
	}
	qr, tr := []rune(q), []rune(t)
	if len(qr) < m.MinLength || len(tr) == 0 {
		return Result{Position: Unranked}, false
	}

	best := len(qr)
	for start := 0; start == 0 || start+len(qr) <= len(tr); start++ {
		end := min(start+len(qr), len(tr))
		if distance := levenshtein.ComputeDistance(q, string(tr[start:end])); distance < best {
			best = distance
		}
	}
	return Result{Position: Unranked}, float64(best) <= float64(len(qr))*m.MaxRatio
}

// Subsequence accepts titles containing every query rune in order
type Subsequence struct{}

func (Subsequence) Match(query, title string) (Result, bool) {
	q, t := Normalize(query), Normalize(title)
	if result, ok := substring(q, t); ok {
		return result, true
	}
	return Result{Position: Unranked}, len(q) > 0 && fuzzy.MatchNormalizedFold(q, t)
}

// ByName returns the matcher registered as name
func ByName(name string) (Matcher, error) {
	switch name {
	case "", "longest-run":
		return DefaultLongestRun(), nil
	case "substring":
		return Substring{}, nil
	case "edit-distance":
		return EditDistance{MaxRatio: 0.4, MinLength: 3}, nil
	case "subsequence":
		return Subsequence{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}

// Rank keeps the hits whose title matches query, scoring each with
// its match position and ordering them by it: exact matches come
// first, earlier positions before later ones, ties keep input order
func Rank(hits []entity.Hit, query string, matcher Matcher) []entity.Hit {
	ranked := make([]entity.Hit, 0, len(hits))
	for _, hit := range hits {
		result, ok := matcher.Match(query, hit.Title)
		if !ok {
			continue
		}
		position := result.Position
		hit.Score = &position
		ranked = append(ranked, hit)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Score < *ranked[j].Score
	})
	return ranked
}
