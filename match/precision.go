package match

import (
	"regexp"

	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/query"
)

// Filter is the precision filter: when q carries a catalog number,
// hits titled with exactly that number are preferred
func Filter(hits []entity.Hit, q, unit string) []entity.Hit {
	return Precision(hits, q, unit)
}

// Precision keeps the hits whose title carries the number of q
// immediately followed by unit ("28장" but neither "128장" nor "280장").
// Titles lacking the unit are only considered when no title has it,
// and when nothing qualifies the input is returned untouched:
// the filter reorders preference, it never empties a result set
func Precision(hits []entity.Hit, q, unit string) []entity.Hit {
	n, ok := query.Number(q)
	if !ok || len(hits) == 0 {
		return hits
	}

	patterns := []*regexp.Regexp{numberPattern(n, unit)}
	if len(unit) > 0 {
		patterns = append(patterns, numberPattern(n, ""))
	}
	for _, pattern := range patterns {
		var kept []entity.Hit
		for _, hit := range hits {
			if pattern.MatchString(hit.Title) {
				kept = append(kept, hit)
			}
		}
		if len(kept) > 0 {
			return kept
		}
	}
	return hits
}

func numberPattern(n, unit string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\D)` + regexp.QuoteMeta(n+unit) + `(?:\D|$)`)
}
