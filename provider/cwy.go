package provider

import (
	"context"
	"strings"

	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/match"
)

// Cwy searches cwy0675.tistory.com, which is mostly used for
// lyrics-first-line searches: its hits are fuzzy matched
// against the keyword and ranked by match position
type Cwy struct {
	*scraper
	matcher match.Matcher
}

func NewCwy(opts Options, matcher match.Matcher) *Cwy {
	if len(opts.BaseURL) == 0 {
		opts.BaseURL = "https://cwy0675.tistory.com"
	}
	if matcher == nil {
		matcher = match.DefaultLongestRun()
	}
	return &Cwy{newScraper(entity.SourceCwy, opts, `a[href*="entry"]`, func(href string) bool {
		return strings.Contains(href, "/entry/") || numericSuffix.MatchString(href)
	}), matcher}
}

func (provider *Cwy) Source() entity.Source {
	return entity.SourceCwy
}

func (provider *Cwy) Search(ctx context.Context, keyword string) []entity.Hit {
	hits, err := provider.scrape(ctx, keyword)
	if err != nil {
		provider.logger.Warn("search failed", "source", provider.Source(), "keyword", keyword, "error", err)
		return []entity.Hit{}
	}
	return match.Rank(hits, keyword, provider.matcher)
}
