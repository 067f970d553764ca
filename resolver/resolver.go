// Package resolver turns a landing page into a retrievable asset
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/util"
)

const (
	contentSelector = "article, .entry-content, .post-content, .tt_article_useless_p_margin, #content, #article"
	relatedSelector = ".another_category, .related-articles, .related"
	titleSelector   = "h1, title"
	originalMarker  = "?original"
)

var (
	// DefaultHosts are the markers of the CDN serving attachments
	DefaultHosts = []string{"t1.daumcdn.net", "tistory.com/attachment"}
	// DefaultExtensions mark a link as pointing to a slide deck
	DefaultExtensions = []string{".ppt", ".pptx"}

	adjacentPattern      = regexp.MustCompile(`(?i)([^\n]+?\.pptx?)`)
	rfc5987Pattern       = regexp.MustCompile(`(?i)filename\*\s*=\s*UTF-8''([^;]+)`)
	plainFilenamePattern = regexp.MustCompile(`(?i)filename\s*=\s*"([^"]+)"`)
)

// Options configures how landing pages and probes are reached
type Options struct {
	UserAgent    string
	PageTimeout  time.Duration
	ProbeTimeout time.Duration
	Unit         string // e.g. "장", used to spot file names in page text
	Hosts        []string
	Extensions   []string
	Client       *http.Client
	Logger       *slog.Logger
}

type Resolver struct {
	page       *http.Client
	probe      *http.Client
	agent      string
	hosts      []string
	extensions []string
	names      *regexp.Regexp
	logger     *slog.Logger
}

func withTimeout(client *http.Client, timeout time.Duration) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		return client
	}
	return &http.Client{
		Transport:     client.Transport,
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       timeout,
	}
}

func New(opts Options) *Resolver {
	if opts.Hosts == nil {
		opts.Hosts = DefaultHosts
	}
	if opts.Extensions == nil {
		opts.Extensions = DefaultExtensions
	}
	if len(opts.Unit) == 0 {
		opts.Unit = "장"
	}
	return &Resolver{
		page:       withTimeout(opts.Client, opts.PageTimeout),
		probe:      withTimeout(opts.Client, opts.ProbeTimeout),
		agent:      opts.UserAgent,
		hosts:      opts.Hosts,
		extensions: opts.Extensions,
		names:      regexp.MustCompile(`(?i)\d+` + regexp.QuoteMeta(opts.Unit) + `[^.]+\.pptx?`),
		logger:     config.Or(opts.Logger),
	}
}

// FromConfig builds a resolver out of the network configuration
func FromConfig(cfg *config.Config, logger *slog.Logger) *Resolver {
	return New(Options{
		UserAgent:    cfg.Network.UserAgent,
		PageTimeout:  cfg.Network.PageTimeout,
		ProbeTimeout: cfg.Network.ProbeTimeout,
		Unit:         cfg.Sources.Unit,
		Logger:       logger,
	})
}

// Resolve fetches the landing page and derives the asset download URL
// and its file name out of it. Whatever could be derived is returned
// even on failure: the error is set whenever no download URL was found
func (resolver *Resolver) Resolve(ctx context.Context, landingURL string) (entity.Asset, error) {
	var asset entity.Asset

	base, err := url.Parse(landingURL)
	if err != nil {
		return asset, &entity.ResolutionError{URL: landingURL, Err: err}
	}

	document, err := resolver.fetch(ctx, landingURL)
	if err != nil {
		return asset, &entity.ResolutionError{URL: landingURL, Err: err}
	}

	asset.PageTitle = collapse(document.Find(titleSelector).First().Text())

	content := document.Find(contentSelector).First()
	if content.Length() == 0 {
		content = document.Selection
	}
	content.Find(relatedSelector).Remove()

	// decider chain: marked attachment, any attachment, inline image
	var link *goquery.Selection
	if link, asset.DownloadURL = resolver.markedAttachment(content, base); len(asset.DownloadURL) > 0 {
		if name := adjacentPattern.FindStringSubmatch(link.Parent().Text()); name != nil {
			asset.FileName = strings.TrimSpace(name[1])
		}
	} else if asset.DownloadURL = resolver.anyAttachment(content, base); len(asset.DownloadURL) == 0 {
		asset.DownloadURL = resolver.image(document.Selection, base)
	}

	// naming chain: adjacent text, content text, header probe, page title
	if len(asset.FileName) == 0 {
		asset.FileName = strings.TrimSpace(resolver.names.FindString(content.Text()))
	}
	if len(asset.FileName) == 0 && len(asset.DownloadURL) > 0 {
		asset.FileName = resolver.Probe(ctx, asset.DownloadURL)
	}
	if len(asset.FileName) == 0 && len(asset.PageTitle) > 0 {
		asset.FileName = util.LegalizeFilename(asset.PageTitle) + "." + entity.AssetFormat
	}
	asset.FileName = strings.Trim(asset.FileName, `"'`)

	resolver.logger.Debug("landing page resolved",
		"url", landingURL, "download", asset.DownloadURL, "file", asset.FileName)
	if !asset.Resolved() {
		return asset, &entity.ResolutionError{URL: landingURL, Err: entity.ErrNoDownloadURL}
	}
	return asset, nil
}

func (resolver *Resolver) fetch(ctx context.Context, landingURL string) (*goquery.Document, error) {
	request, err := util.HTTPRequest(ctx, http.MethodGet, landingURL, resolver.agent)
	if err != nil {
		return nil, err
	}
	response, err := resolver.page.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", response.Status)
	}
	return goquery.NewDocumentFromReader(response.Body)
}

func (resolver *Resolver) hosted(ref string) bool {
	for _, host := range resolver.hosts {
		if strings.Contains(ref, host) {
			return true
		}
	}
	return false
}

func (resolver *Resolver) marked(text string) bool {
	text = strings.ToLower(text)
	for _, extension := range resolver.extensions {
		if strings.Contains(text, extension) {
			return true
		}
	}
	return false
}

func (resolver *Resolver) markedAttachment(content *goquery.Selection, base *url.URL) (*goquery.Selection, string) {
	var (
		link *goquery.Selection
		ref  string
	)
	content.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href := anchor.AttrOr("href", "")
		if resolver.hosted(href) && (resolver.marked(href) || resolver.marked(anchor.Text())) {
			link, ref = anchor, absolute(base, href)
			return false
		}
		return true
	})
	return link, ref
}

func (resolver *Resolver) anyAttachment(content *goquery.Selection, base *url.URL) string {
	var ref string
	content.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		if href := anchor.AttrOr("href", ""); resolver.hosted(href) {
			ref = absolute(base, href)
			return false
		}
		return true
	})
	return ref
}

func (resolver *Resolver) image(document *goquery.Selection, base *url.URL) string {
	var ref string
	document.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if src := img.AttrOr("src", ""); resolver.hosted(src) {
			if !strings.Contains(src, "?") {
				src += originalMarker
			}
			ref = absolute(base, src)
			return false
		}
		return true
	})
	return ref
}

// Probe issues a header-only request to downloadURL and returns
// the file name advertised in its Content-Disposition, if any
func (resolver *Resolver) Probe(ctx context.Context, downloadURL string) string {
	request, err := util.HTTPRequest(ctx, http.MethodHead, downloadURL, resolver.agent)
	if err != nil {
		return ""
	}
	response, err := resolver.probe.Do(request)
	if err != nil {
		resolver.logger.Debug("header probe failed", "url", downloadURL, "error", err)
		return ""
	}
	response.Body.Close()
	return Disposition(response.Header.Get("Content-Disposition"))
}

// Disposition extracts the file name out of a Content-Disposition
// header value, preferring the RFC 5987 "filename*" parameter
func Disposition(header string) string {
	if len(header) == 0 {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = unescape(params["filename"])
	} else if match := rfc5987Pattern.FindStringSubmatch(header); match != nil {
		name = unescape(strings.TrimSpace(match[1]))
	} else if match := plainFilenamePattern.FindStringSubmatch(header); match != nil {
		name = unescape(match[1])
	}
	return strings.Trim(strings.TrimSpace(name), `"'`)
}

// unescape decodes percent-encoded names, some servers send them
// that way even outside of the extended parameter
func unescape(name string) string {
	if !strings.Contains(name, "%") {
		return name
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func absolute(base *url.URL, ref string) string {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
