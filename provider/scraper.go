package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/util"
)

const (
	primarySelector = ".searchList li, .search-result-item, article, .post-item"
	titleSelector   = "h2, h3, .title, .tit"
	minTitleLength  = 4
)

var numericSuffix = regexp.MustCompile(`/\d+$`)

// Options configures how a source is reached
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
	Logger    *slog.Logger
}

// scraper holds the extraction shared by every tistory-like source:
// a primary selector chain, then a looser fallback one
type scraper struct {
	source   entity.Source
	base     *url.URL
	client   *http.Client
	agent    string
	fallback string
	accept   func(href string) bool
	logger   *slog.Logger
}

func newScraper(source entity.Source, opts Options, fallback string, accept func(string) bool) *scraper {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		base = &url.URL{}
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout > 0 {
		client = &http.Client{
			Transport:     client.Transport,
			CheckRedirect: client.CheckRedirect,
			Jar:           client.Jar,
			Timeout:       opts.Timeout,
		}
	}
	return &scraper{
		source:   source,
		base:     base,
		client:   client,
		agent:    opts.UserAgent,
		fallback: fallback,
		accept:   accept,
		logger:   config.Or(opts.Logger),
	}
}

func (scraper *scraper) searchURL(keyword string) string {
	return strings.TrimSuffix(scraper.base.String(), "/") + "/search/" + url.PathEscape(keyword)
}

func (scraper *scraper) scrape(ctx context.Context, keyword string) ([]entity.Hit, error) {
	request, err := util.HTTPRequest(ctx, http.MethodGet, scraper.searchURL(keyword), scraper.agent)
	if err != nil {
		return nil, &entity.AdapterError{Source: scraper.source, Err: err}
	}

	response, err := scraper.client.Do(request)
	if err != nil {
		return nil, &entity.AdapterError{Source: scraper.source, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &entity.AdapterError{Source: scraper.source, Err: fmt.Errorf("unexpected status %s", response.Status)}
	}

	document, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return nil, &entity.AdapterError{Source: scraper.source, Err: err}
	}

	hits := scraper.extract(document.Find(primarySelector))
	if len(hits) == 0 {
		scraper.logger.Debug("primary selectors yielded nothing, falling back",
			"source", scraper.source, "keyword", keyword)
		hits = scraper.extract(document.Find(scraper.fallback))
	}
	return hits, nil
}

func (scraper *scraper) extract(selection *goquery.Selection) []entity.Hit {
	var (
		hits = []entity.Hit{}
		seen = make(map[string]bool)
	)
	selection.Each(func(_ int, item *goquery.Selection) {
		link := item
		if goquery.NodeName(item) != "a" {
			link = item.Find("a[href]").First()
		}
		href, ok := link.Attr("href")
		if !ok || len(href) == 0 || !scraper.accept(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		fullURL := scraper.base.ResolveReference(ref).String()

		title := collapse(link.Text())
		if len(title) == 0 {
			title = collapse(item.Find(titleSelector).First().Text())
		}
		if utf8.RuneCountInString(title) < minTitleLength || seen[fullURL] {
			return
		}
		seen[fullURL] = true

		hit := entity.Hit{Title: title, URL: fullURL, Source: scraper.source}
		if src, ok := item.Find("img[src]").First().Attr("src"); ok {
			if ref, err := url.Parse(src); err == nil {
				hit.Thumbnail = scraper.base.ResolveReference(ref).String()
			}
		}
		hits = append(hits, hit)
	})
	return hits
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
