package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitepack/internal/asset"
	"github.com/nao1215/sitepack/internal/bundle"
	"github.com/nao1215/sitepack/internal/cache"
	"github.com/nao1215/sitepack/internal/crawler"
	"github.com/nao1215/sitepack/internal/extract"
	"github.com/nao1215/sitepack/internal/fetcher"
	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/schema"
)

// CacheGateStep skips the run when the crawl cache holds a fresh entry for
// the seed and options. A nil cache never skips.
type CacheGateStep struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCacheGateStep creates the cache decision step.
func NewCacheGateStep(c *cache.Cache, logger *slog.Logger) *CacheGateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheGateStep{cache: c, logger: logger}
}

// Name returns the step name.
func (s *CacheGateStep) Name() string {
	return "cache_gate"
}

// Do executes the cache decision.
func (s *CacheGateStep) Do(ctx context.Context, run *Run) error {
	if s.cache == nil {
		return nil
	}
	if s.cache.ShouldCrawl(ctx, run.SeedURL, run.Options, run.Force) {
		return nil
	}

	if entry, ok := s.cache.Lookup(ctx, run.SeedURL, run.Options); ok {
		run.Summary.PagesCrawled = entry.Metadata.PagesCount
		run.Summary.AssetsDownloaded = entry.Metadata.AssetsCount
		s.logger.Info("fresh crawl in cache, skipping",
			"url", run.SeedURL,
			"crawled_at", entry.Timestamp,
		)
	}
	run.Skip()
	return nil
}

// CrawlStep fetches the seed and the pages reachable from it.
// A spider is created per run so that visited sets never leak between runs.
type CrawlStep struct {
	fetcher fetcher.Fetcher
	opts    []crawler.SpiderOption
	logger  *slog.Logger
}

// NewCrawlStep creates the crawl step. The run's options set the depth and
// page bounds; opts carry everything else.
func NewCrawlStep(f fetcher.Fetcher, logger *slog.Logger, opts ...crawler.SpiderOption) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{fetcher: f, opts: opts, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	spiderOpts := make([]crawler.SpiderOption, 0, len(s.opts)+2)
	spiderOpts = append(spiderOpts, s.opts...)
	spiderOpts = append(spiderOpts,
		crawler.WithCrawlOptions(run.Options),
		crawler.WithLogger(s.logger),
	)
	spider := crawler.NewSpider(s.fetcher, spiderOpts...)

	pages, err := spider.Crawl(ctx, run.SeedURL)
	stats := spider.Stats()
	run.Summary.PagesFailed = stats.PagesFailed

	if len(pages) == 0 {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNoPages, err)
		}
		return fmt.Errorf("%w: %s", ErrNoPages, run.SeedURL)
	}
	if err != nil {
		// Partial results stay usable.
		s.logger.Warn("crawl completed with error", "url", run.SeedURL, "error", err)
	}

	run.Pages = pages
	run.Summary.PagesCrawled = len(pages)

	s.logger.Info("crawl completed",
		"url", run.SeedURL,
		"pages_visited", stats.PagesVisited,
		"pages_failed", stats.PagesFailed,
		"urls_queued", stats.URLsQueued,
	)
	return nil
}

// ExtractStep attaches content primitives to every crawled page.
type ExtractStep struct {
	extractor *extract.Extractor
}

// NewExtractStep creates the extraction step.
func NewExtractStep(e *extract.Extractor) *ExtractStep {
	return &ExtractStep{extractor: e}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extraction step. Failed pages keep an empty content set.
func (s *ExtractStep) Do(_ context.Context, run *Run) error {
	run.Summary.ExtractionFailures = s.extractor.ExtractAll(run.Pages, run.Host)
	return nil
}

// AssetStep downloads the content images of the crawled pages.
// A nil downloader disables the step.
type AssetStep struct {
	downloader *asset.Downloader
	logger     *slog.Logger
}

// NewAssetStep creates the asset step.
func NewAssetStep(d *asset.Downloader, logger *slog.Logger) *AssetStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetStep{downloader: d, logger: logger}
}

// Name returns the step name.
func (s *AssetStep) Name() string {
	return "assets"
}

// Do executes the asset step.
func (s *AssetStep) Do(ctx context.Context, run *Run) error {
	if s.downloader == nil {
		return nil
	}

	urls := asset.ImageURLs(run.Pages)
	if len(urls) == 0 {
		return nil
	}

	assets, failed := s.downloader.DownloadAll(ctx, urls)
	run.Assets = assets
	run.Summary.AssetsDownloaded = len(assets)
	run.Summary.AssetsFailed = failed

	s.logger.Info("assets downloaded",
		"url", run.SeedURL,
		"downloaded", len(assets),
		"failed", failed,
	)
	return nil
}

// NormalizeStep builds the canonical document and validates it.
// A document that fails validation is fatal to the run.
type NormalizeStep struct {
	normalizer *schema.Normalizer
}

// NewNormalizeStep creates the normalization step.
func NewNormalizeStep(n *schema.Normalizer) *NormalizeStep {
	return &NormalizeStep{normalizer: n}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the normalization step.
func (s *NormalizeStep) Do(_ context.Context, run *Run) error {
	doc := s.normalizer.Normalize(schema.CrawlResult{
		Domain:  run.Domain,
		BaseURL: run.SeedURL,
		Pages:   run.Pages,
		Assets:  run.Assets,
	})
	if err := schema.Validate(doc); err != nil {
		return err
	}

	run.Document = doc
	run.Summary.CountSections(doc)
	run.Summary.SiteTitle = doc.Site.Title
	run.Summary.BrandSeed = doc.Site.BrandSeed
	run.Summary.BrandTheme = schema.BrandTheme(run.Domain, doc.Site.Title, doc.Site.Description)
	return nil
}

// EmitStep hands the finished bundle to an emitter.
// A nil emitter disables the step.
type EmitStep struct {
	emitter bundle.Emitter
	logger  *slog.Logger
}

// NewEmitStep creates the emission step.
func NewEmitStep(e bundle.Emitter, logger *slog.Logger) *EmitStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmitStep{emitter: e, logger: logger}
}

// Name returns the step name.
func (s *EmitStep) Name() string {
	return "emit"
}

// Do executes the emission step.
func (s *EmitStep) Do(ctx context.Context, run *Run) error {
	if s.emitter == nil {
		return nil
	}
	if run.Document == nil {
		return ErrNoDocument
	}

	b := &bundle.Bundle{
		Document:  run.Document,
		Pages:     run.Pages,
		Assets:    run.Assets,
		SeedURL:   run.SeedURL,
		Domain:    run.Domain,
		CrawledAt: time.Now(),
	}
	if err := s.emitter.Emit(ctx, b); err != nil {
		return fmt.Errorf("failed to emit bundle: %w", err)
	}

	if d, ok := s.emitter.(interface{ Dir() string }); ok {
		run.Summary.OutputDir = d.Dir()
		s.logger.Info("bundle written", "url", run.SeedURL, "path", d.Dir())
	}
	return nil
}

// RecordCacheStep records the finished crawl in the cache.
// Cache write failures are logged and never fail the run.
type RecordCacheStep struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewRecordCacheStep creates the cache recording step.
func NewRecordCacheStep(c *cache.Cache, logger *slog.Logger) *RecordCacheStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCacheStep{cache: c, logger: logger}
}

// Name returns the step name.
func (s *RecordCacheStep) Name() string {
	return "record_cache"
}

// Do executes the cache recording step.
func (s *RecordCacheStep) Do(ctx context.Context, run *Run) error {
	if s.cache == nil {
		return nil
	}

	meta := model.CacheMetadata{
		PagesCount:  len(run.Pages),
		AssetsCount: len(run.Assets),
		CrawlDepth:  run.Options.MaxDepth,
		MaxPages:    run.Options.MaxPages,
	}
	if err := s.cache.RecordCrawl(ctx, run.SeedURL, run.Options, meta); err != nil {
		s.logger.Warn("failed to record crawl", "url", run.SeedURL, "error", err)
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Cache decides whether to crawl and records finished crawls.
	// Nil disables caching.
	Cache *cache.Cache

	// LinkCap is the number of new links a page may enqueue.
	LinkCap int

	// Concurrency is the number of pages fetched in parallel per level.
	Concurrency int

	// CrawlDelay is the minimum delay between two fetches.
	CrawlDelay time.Duration

	// Robots, when set, makes the crawl honor robots.txt.
	Robots *crawler.RobotsGate

	// IgnorePatterns are URL path patterns to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path patterns to follow during crawling.
	FollowPatterns []string

	// DecorativeTokens replace the extractor's decorative image tokens.
	DecorativeTokens []string

	// NavigationTokens replace the extractor's navigation link tokens.
	NavigationTokens []string

	// Downloader fetches content images. Nil skips asset download.
	Downloader *asset.Downloader

	// Emitter receives the finished bundle. Nil skips emission.
	Emitter bundle.Emitter

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCache sets the crawl cache.
func WithPipelineCache(c *cache.Cache) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Cache = c
	}
}

// WithPipelineLinkCap sets the per-page link cap.
func WithPipelineLinkCap(n int) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.LinkCap = n
	}
}

// WithPipelineConcurrency sets the number of concurrent fetches per level.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Concurrency = n
	}
}

// WithPipelineCrawlDelay sets the delay between fetches.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.CrawlDelay = delay
	}
}

// WithPipelineRobots enables robots.txt compliance.
func WithPipelineRobots(gate *crawler.RobotsGate) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Robots = gate
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.FollowPatterns = patterns
	}
}

// WithPipelineTokens sets the extraction keyword lists. Empty lists keep
// the defaults.
func WithPipelineTokens(decorative, navigation []string) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.DecorativeTokens = decorative
		cfg.NavigationTokens = navigation
	}
}

// WithPipelineDownloader sets the asset downloader.
func WithPipelineDownloader(d *asset.Downloader) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Downloader = d
	}
}

// WithPipelineEmitter sets the bundle emitter.
func WithPipelineEmitter(e bundle.Emitter) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Emitter = e
	}
}

// WithPipelineLogger sets the logger used by the steps.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with all steps in their fixed order:
// cache gate, crawl, extract, assets, normalize, emit, record cache.
// The crawl is recorded only after the bundle was delivered, so a failed
// run is retried on the next invocation.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineCache, etc).
func DefaultPipeline(f fetcher.Fetcher, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		LinkCap:     crawler.DefaultLinkCap,
		Concurrency: 1,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = p.logger
	}

	spiderOpts := []crawler.SpiderOption{
		crawler.WithLinkCap(cfg.LinkCap),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDelay(cfg.CrawlDelay),
	}
	if cfg.Robots != nil {
		spiderOpts = append(spiderOpts, crawler.WithRobots(cfg.Robots))
	}
	if len(cfg.IgnorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(cfg.IgnorePatterns))
	}
	if len(cfg.FollowPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(cfg.FollowPatterns))
	}

	extractor := extract.New(
		extract.WithDecorativeTokens(cfg.DecorativeTokens),
		extract.WithNavigationTokens(cfg.NavigationTokens),
		extract.WithLogger(cfg.Logger),
	)
	normalizer := schema.NewNormalizer(
		schema.WithLocalAssets(cfg.Downloader != nil),
		schema.WithLogger(cfg.Logger),
	)

	p.AddSteps(
		NewCacheGateStep(cfg.Cache, cfg.Logger),
		NewCrawlStep(f, cfg.Logger, spiderOpts...),
		NewExtractStep(extractor),
		NewAssetStep(cfg.Downloader, cfg.Logger),
		NewNormalizeStep(normalizer),
		NewEmitStep(cfg.Emitter, cfg.Logger),
		NewRecordCacheStep(cfg.Cache, cfg.Logger),
	)

	return p
}
