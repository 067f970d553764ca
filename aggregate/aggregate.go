// Package aggregate reconciles hits coming from several searches
package aggregate

import (
	"github.com/sahilm/fuzzy"
	"github.com/streambinder/hymnal/entity"
)

type Mode int

const (
	// Replace discards what was there before
	Replace Mode = iota
	// Accumulate appends to what was there before
	Accumulate
)

// ResultSet is an ordered, URL-unique snapshot of hits:
// every operation returns a new set and leaves its inputs alone
type ResultSet struct {
	hits []entity.Hit
}

// New builds a set out of hits, dropping later duplicates
func New(hits ...entity.Hit) ResultSet {
	return ResultSet{dedup(hits)}
}

func (set ResultSet) Hits() []entity.Hit {
	return append([]entity.Hit{}, set.hits...)
}

func (set ResultSet) Len() int {
	return len(set.hits)
}

func (set ResultSet) At(i int) entity.Hit {
	return set.hits[i]
}

// Merge combines existing with incoming according to mode
func Merge(existing ResultSet, incoming []entity.Hit, mode Mode) ResultSet {
	if mode == Replace {
		return New(incoming...)
	}
	combined := make([]entity.Hit, 0, len(existing.hits)+len(incoming))
	combined = append(combined, existing.hits...)
	combined = append(combined, incoming...)
	return New(combined...)
}

func dedup(hits []entity.Hit) []entity.Hit {
	var (
		unique = make([]entity.Hit, 0, len(hits))
		seen   = make(map[string]bool, len(hits))
	)
	for _, hit := range hits {
		if seen[hit.URL] {
			continue
		}
		seen[hit.URL] = true
		unique = append(unique, hit)
	}
	return unique
}

// BestPerSource keeps the first hit of every source, in sources order
func BestPerSource(hits []entity.Hit, sources ...entity.Source) []entity.Hit {
	best := []entity.Hit{}
	for _, source := range sources {
		for _, hit := range hits {
			if hit.Source == source {
				best = append(best, hit)
				break
			}
		}
	}
	return best
}

type titles []entity.Hit

func (t titles) String(i int) string {
	return t[i].Title
}

func (t titles) Len() int {
	return len(t)
}

// Filter narrows the set to hits whose title fuzzily contains
// pattern, best matches first; an empty pattern keeps everything
func (set ResultSet) Filter(pattern string) ResultSet {
	if len(pattern) == 0 {
		return set
	}
	var (
		matches  = fuzzy.FindFrom(pattern, titles(set.hits))
		filtered = make([]entity.Hit, 0, len(matches))
	)
	for _, match := range matches {
		filtered = append(filtered, set.hits[match.Index])
	}
	return ResultSet{filtered}
}
