package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/streambinder/hymnal/aggregate"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/downloader"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/index"
	"github.com/streambinder/hymnal/match"
	"github.com/streambinder/hymnal/provider"
	"github.com/streambinder/hymnal/query"
	"github.com/streambinder/hymnal/resolver"
	"github.com/streambinder/hymnal/util"
	"github.com/thanhpk/randstr"
)

// Resolver turns a landing page into an asset
type Resolver interface {
	Resolve(ctx context.Context, landingURL string) (entity.Asset, error)
}

// Fetcher streams an asset to disk
type Fetcher interface {
	Download(ctx context.Context, url, dest string, onProgress func(int)) (downloader.Status, error)
}

// Hooks let the front end follow a run, they are called
// from the goroutine running it
type Hooks struct {
	Status   func(message string)
	Progress func(fraction float64) // overall, 0 to 1
	Item     func(item entity.WorkItem)
}

type Options struct {
	Providers []provider.Provider
	Resolver  Resolver
	Fetcher   Fetcher
	Index     *index.Index
	Prefix    string // keyword prefix for numeric queries, e.g. "새찬송가"
	Unit      string // catalog number unit, e.g. "장"
	Capacity  int
	Hooks     Hooks
	Logger    *slog.Logger
}

// Orchestrator sequences searches, resolutions and fetches.
// Runs execute on the calling goroutine, strictly one item at a time
type Orchestrator struct {
	providers []provider.Provider
	resolver  Resolver
	fetcher   Fetcher
	index     *index.Index
	prefix    string
	unit      string
	hooks     Hooks
	logger    *slog.Logger
	queue     *DownloadQueue
	cancelled atomic.Bool
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		providers: opts.Providers,
		resolver:  opts.Resolver,
		fetcher:   opts.Fetcher,
		index:     opts.Index,
		prefix:    opts.Prefix,
		unit:      opts.Unit,
		hooks:     opts.Hooks,
		logger:    config.Or(opts.Logger),
		queue:     NewDownloadQueue(opts.Capacity),
	}
}

// FromConfig wires the orchestrator with the configured sources,
// idx may be nil
func FromConfig(cfg *config.Config, idx *index.Index, hooks Hooks, logger *slog.Logger) (*Orchestrator, error) {
	providers, err := provider.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Providers: providers,
		Resolver:  resolver.FromConfig(cfg, logger),
		Fetcher:   downloader.FromConfig(cfg, logger),
		Index:     idx,
		Prefix:    cfg.Sources.Prefix,
		Unit:      cfg.Sources.Unit,
		Capacity:  cfg.Download.Capacity,
		Hooks:     hooks,
		Logger:    logger,
	}), nil
}

// Queue returns the bounded selection owned by the orchestrator
func (orchestrator *Orchestrator) Queue() *DownloadQueue {
	return orchestrator.queue
}

// Cancel asks the run in progress to stop once the current item is over.
// The request holds, for runs started later too, until Reset
func (orchestrator *Orchestrator) Cancel() {
	orchestrator.cancelled.Store(true)
}

// Reset withdraws any pending cancellation request
func (orchestrator *Orchestrator) Reset() {
	orchestrator.cancelled.Store(false)
}

// Cooperative turns the cancellation of ctx into a Cancel request and
// returns the context runs should use: it carries the values of ctx but
// is never cancelled, so the item in progress is not aborted midway.
// Call stop once the run is over
func (orchestrator *Orchestrator) Cooperative(ctx context.Context) (run context.Context, stop func() bool) {
	orchestrator.Reset()
	stop = context.AfterFunc(ctx, orchestrator.Cancel)
	return context.WithoutCancel(ctx), stop
}

func (orchestrator *Orchestrator) status(format string, a ...interface{}) {
	if orchestrator.hooks.Status != nil {
		orchestrator.hooks.Status(fmt.Sprintf(format, a...))
	}
}

func (orchestrator *Orchestrator) progress(i, total, percent int) {
	if orchestrator.hooks.Progress != nil && total > 0 {
		orchestrator.hooks.Progress((float64(i) + float64(percent)/100) / float64(total))
	}
}

func (orchestrator *Orchestrator) transition(item *entity.WorkItem, state entity.State) {
	item.State = state
	if orchestrator.hooks.Item != nil {
		orchestrator.hooks.Item(*item)
	}
}

// Search returns the candidates for q, best first: numeric queries
// are searched as catalog entries, and whenever q carries a number
// the hits titled with exactly that number are kept
func (orchestrator *Orchestrator) Search(ctx context.Context, q string) ([]entity.Hit, error) {
	keyword := query.Keyword(orchestrator.prefix, q, orchestrator.unit)
	hits, err := provider.SearchAll(ctx, keyword, orchestrator.providers...)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, entity.ErrNoResults
	}
	return match.Precision(hits, q, orchestrator.unit), nil
}

// BatchSearch searches every catalog number, keeping
// the best hit of each source per number
func (orchestrator *Orchestrator) BatchSearch(ctx context.Context, numbers []int) (aggregate.ResultSet, error) {
	var (
		set     = aggregate.New()
		sources = provider.Sources(orchestrator.providers...)
		logger  = orchestrator.logger.With("run", randstr.Hex(4))
	)
	if len(orchestrator.providers) == 0 {
		return set, entity.ErrNoSources
	}

	for i, n := range numbers {
		if orchestrator.cancelled.Load() {
			break
		}
		q := strconv.Itoa(n)
		orchestrator.status("searching %s%s (%d/%d)", q, orchestrator.unit, i+1, len(numbers))
		hits, err := orchestrator.Search(ctx, q)
		if err != nil {
			logger.Info("batch search missed", "number", n, "error", err)
			orchestrator.progress(i+1, len(numbers), 0)
			continue
		}
		set = aggregate.Merge(set, aggregate.BestPerSource(hits, sources...), aggregate.Accumulate)
		orchestrator.progress(i+1, len(numbers), 0)
	}
	logger.Info("batch search complete", "numbers", len(numbers), "hits", set.Len())
	return set, nil
}

// Retrieve runs the whole chain for q on its own, storing
// the asset as the seq-th file of destDir
func (orchestrator *Orchestrator) Retrieve(ctx context.Context, q, destDir string, seq int) (string, error) {
	hits, err := orchestrator.Search(ctx, q)
	if err != nil {
		return "", err
	}
	path, _, err := orchestrator.fetch(ctx, q, hits[0], destDir, seq, nil)
	return path, err
}

// fetch resolves hit and streams its asset to destDir, reporting
// whether the sequence number has been consumed
func (orchestrator *Orchestrator) fetch(ctx context.Context, q string, hit entity.Hit, destDir string, seq int, onPercent func(int)) (string, bool, error) {
	asset, err := orchestrator.resolver.Resolve(ctx, hit.URL)
	if err != nil {
		return "", false, err
	}

	fallback := q
	if len(fallback) == 0 {
		fallback = hit.Title
	}
	path := asset.Path(destDir, seq).Final(fallback)

	if util.FileExists(path) {
		orchestrator.logger.Info("already downloaded", "path", path)
		return path, true, nil
	}

	status, err := orchestrator.fetcher.Download(ctx, asset.DownloadURL, path, onPercent)
	if err != nil {
		return "", true, err
	}
	if status == downloader.Fetched && orchestrator.index != nil {
		if err := orchestrator.index.Put(index.Record{
			Query:       q,
			Title:       hit.Title,
			URL:         hit.URL,
			Source:      hit.Source,
			DownloadURL: asset.DownloadURL,
			Path:        path,
		}); err != nil {
			orchestrator.logger.Warn("cannot index asset", "path", path, "error", err)
		}
	}
	return path, true, nil
}

// RunBatch retrieves every query in order into destDir, numbering files
// from startIndex. Per-item failures land in the report: the only error
// returned is the configuration one, when there is no source to search
func (orchestrator *Orchestrator) RunBatch(ctx context.Context, queries []string, destDir string, startIndex int) (entity.Report, error) {
	report := entity.Report{Total: len(queries)}
	if len(orchestrator.providers) == 0 {
		return report, entity.ErrNoSources
	}

	var (
		logger = orchestrator.logger.With("run", randstr.Hex(4))
		seq    = startIndex
	)
	logger.Info("batch started", "items", len(queries), "dir", destDir)

	for i, q := range queries {
		if orchestrator.cancelled.Load() {
			report.Cancelled = true
			break
		}

		item := entity.NewWorkItem("", q)
		orchestrator.transition(&item, entity.StateSearching)
		orchestrator.status("searching %s (%d/%d)", q, i+1, len(queries))
		orchestrator.progress(i, len(queries), 0)

		hits, err := orchestrator.Search(ctx, q)
		if err != nil {
			orchestrator.fail(logger, &report, &item, err)
			continue
		}

		orchestrator.transition(&item, entity.StateDownloading)
		orchestrator.status("downloading %s (%d/%d)", hits[0].Title, i+1, len(queries))
		path, started, err := orchestrator.fetch(ctx, q, hits[0], destDir, seq, func(percent int) {
			orchestrator.progress(i, len(queries), percent)
		})
		if started {
			seq++
		}
		if err != nil {
			orchestrator.fail(logger, &report, &item, err)
			continue
		}

		item.File = path
		orchestrator.transition(&item, entity.StateDone)
		report.Done(path)
		orchestrator.progress(i+1, len(queries), 0)
	}

	logger.Info("batch complete", "success", report.Success, "failed", len(report.Failed), "cancelled", report.Cancelled)
	return report, nil
}

// RunQueue retrieves the selected hits in order into destDir
func (orchestrator *Orchestrator) RunQueue(ctx context.Context, hits []entity.Hit, destDir string, startIndex int) entity.Report {
	return orchestrator.Transfer(ctx, hits, destDir, startIndex, nil)
}

// Transfer retrieves the selected hits in order into destDir,
// handing each fetched file over to onFile as soon as it is in place
func (orchestrator *Orchestrator) Transfer(ctx context.Context, hits []entity.Hit, destDir string, startIndex int, onFile func(path string)) entity.Report {
	var (
		report = entity.Report{Total: len(hits)}
		logger = orchestrator.logger.With("run", randstr.Hex(4))
		seq    = startIndex
	)
	logger.Info("queue started", "items", len(hits), "dir", destDir)

	for i, hit := range hits {
		if orchestrator.cancelled.Load() {
			report.Cancelled = true
			break
		}

		item := entity.NewWorkItem("", hit.Title)
		orchestrator.transition(&item, entity.StateDownloading)
		orchestrator.status("downloading %s (%d/%d)", hit.Title, i+1, len(hits))
		orchestrator.progress(i, len(hits), 0)

		path, started, err := orchestrator.fetch(ctx, "", hit, destDir, seq, func(percent int) {
			orchestrator.progress(i, len(hits), percent)
		})
		if started {
			seq++
		}
		if err != nil {
			orchestrator.fail(logger, &report, &item, err)
			continue
		}

		item.File = path
		orchestrator.transition(&item, entity.StateDone)
		report.Done(path)
		if onFile != nil {
			onFile(path)
		}
		orchestrator.progress(i+1, len(hits), 0)
	}

	logger.Info("queue complete", "success", report.Success, "failed", len(report.Failed), "cancelled", report.Cancelled)
	return report
}

func (orchestrator *Orchestrator) fail(logger *slog.Logger, report *entity.Report, item *entity.WorkItem, err error) {
	item.Reason = entity.Reason(err)
	orchestrator.transition(item, entity.StateFailed)
	report.Fail(item.Query, err)

	level := slog.LevelWarn
	if errors.Is(err, entity.ErrNoResults) {
		level = slog.LevelInfo
	}
	logger.Log(context.Background(), level, "item failed", "query", item.Query, "error", err)
}

// Names returns the base names of paths
func Names(paths []string) []string {
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}
	return names
}
