package provider

import (
	"context"

	"github.com/streambinder/hymnal/entity"
)

// Getwater searches getwater.tistory.com, whose posts
// are addressed by numeric identifiers (e.g. /2645)
type Getwater struct {
	*scraper
}

func NewGetwater(opts Options) *Getwater {
	if len(opts.BaseURL) == 0 {
		opts.BaseURL = "https://getwater.tistory.com"
	}
	return &Getwater{newScraper(entity.SourceGetwater, opts, `a[href*="/"]`, func(href string) bool {
		return numericSuffix.MatchString(href)
	})}
}

func (provider *Getwater) Source() entity.Source {
	return entity.SourceGetwater
}

func (provider *Getwater) Search(ctx context.Context, keyword string) []entity.Hit {
	hits, err := provider.scrape(ctx, keyword)
	if err != nil {
		provider.logger.Warn("search failed", "source", provider.Source(), "keyword", keyword, "error", err)
		return []entity.Hit{}
	}
	return hits
}
