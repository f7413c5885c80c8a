package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitepack/internal/asset"
	"github.com/nao1215/sitepack/internal/bundle"
	"github.com/nao1215/sitepack/internal/cache"
	"github.com/nao1215/sitepack/internal/config"
	"github.com/nao1215/sitepack/internal/crawler"
	"github.com/nao1215/sitepack/internal/fetcher"
	"github.com/nao1215/sitepack/internal/log"
	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/pipeline"
	"github.com/nao1215/sitepack/internal/report"
	"github.com/nao1215/sitepack/internal/schema"
)

// errRunsFailed is returned when at least one site could not be packaged.
var errRunsFailed = errors.New("one or more sites failed")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl websites and write their site bundles",
		Long: `Crawl fetches each seed URL and the same-site pages reachable from it,
extracts the content of every page, and writes a bundle with the canonical
site document to <output-dir>/<host>.

Sites crawled within --cache-max-age with the same depth and page limit are
skipped unless --force is given.

Examples:
  # Crawl a site with the default bounds (depth 2, 20 pages)
  sitepack crawl https://example.com

  # Crawl several sites, two at a time, and print a Markdown report
  sitepack crawl --format markdown https://a.example https://b.example

  # Render JavaScript-heavy pages in a headless browser
  sitepack crawl --render https://spa.example.org

  # Be polite: honor robots.txt and wait a second between requests
  sitepack crawl --robots --delay 1s https://example.com

Configuration file (.sitepack) example:
  sites:
    example.com:
      depth: 3
      cookie: "session=abc123"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl bounds
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed URL (0 = seed page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages per site")
	cmd.Flags().Int("link-cap", config.DefaultLinkCap,
		"Maximum number of new links followed per page")

	// Fetching
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of pages fetched in parallel within one site")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites processed in parallel")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum delay between two requests to a site")
	cmd.Flags().Bool("robots", false,
		"Honor robots.txt")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum page size in bytes")

	// Rendering
	cmd.Flags().Bool("render", false,
		"Render pages in a headless browser")
	cmd.Flags().String("browser-url", "",
		"DevTools WebSocket URL of a running browser (default: launch one)")
	cmd.Flags().Bool("stealth", false,
		"Hide headless browser fingerprints when rendering")

	// Assets
	cmd.Flags().Bool("no-assets", false,
		"Do not download images")
	cmd.Flags().Int("asset-concurrency", config.DefaultAssetConcurrency,
		"Number of parallel image downloads")
	cmd.Flags().Int64("max-asset-size", config.DefaultMaxAssetSize,
		"Maximum image size in bytes")

	// Cache
	cmd.Flags().BoolP("force", "F", false,
		"Crawl even when the cache holds a fresh entry")
	cmd.Flags().Bool("no-cache", false,
		"Disable the crawl cache")
	cmd.Flags().Duration("cache-max-age", config.DefaultCacheMaxAge,
		"How long a recorded crawl stays fresh")
	addCacheFlags(cmd)

	// Output
	cmd.Flags().StringP("output-dir", "O", "",
		"Directory for site bundles (default: $XDG_DATA_HOME/sitepack/sites)")
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat,
		"Report format: text, markdown or json")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("json-logs", false,
		"Write logs as JSON lines")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitepack in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLogs)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	intFlags := []struct {
		name string
		dst  *int
	}{
		{"depth", &cfg.MaxDepth},
		{"max-pages", &cfg.MaxPages},
		{"link-cap", &cfg.LinkCap},
		{"concurrency", &cfg.Concurrency},
		{"batch", &cfg.BatchSize},
		{"asset-concurrency", &cfg.AssetConcurrency},
	}
	for _, f := range intFlags {
		if *f.dst, err = flags.GetInt(f.name); err != nil {
			return nil, err
		}
	}

	durationFlags := []struct {
		name string
		dst  *time.Duration
	}{
		{"timeout", &cfg.Timeout},
		{"delay", &cfg.CrawlDelay},
		{"cache-max-age", &cfg.CacheMaxAge},
	}
	for _, f := range durationFlags {
		if *f.dst, err = flags.GetDuration(f.name); err != nil {
			return nil, err
		}
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"robots", &cfg.RespectRobots},
		{"render", &cfg.Render},
		{"stealth", &cfg.Stealth},
		{"no-assets", &cfg.SkipAssets},
		{"force", &cfg.Force},
		{"no-cache", &cfg.NoCache},
		{"json-logs", &cfg.JSONLogs},
	}
	for _, f := range boolFlags {
		if *f.dst, err = flags.GetBool(f.name); err != nil {
			return nil, err
		}
	}

	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.MaxAssetSize, err = flags.GetInt64("max-asset-size"); err != nil {
		return nil, err
	}

	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.BrowserURL, err = flags.GetString("browser-url"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if dir, err := flags.GetString("output-dir"); err != nil {
		return nil, err
	} else if dir != "" {
		cfg.OutputDir = dir
	}
	if err := readCacheFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default lookup may
	// find nothing.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Seeds = args

	return cfg, nil
}

// setupLogger creates the redacting logger for the chosen output style.
func setupLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return log.NewJSONLogger(w, verbose)
	}
	return log.NewLogger(w, verbose)
}

// runCrawl packages every seed and writes the report. Progress lines go
// to progress; the report goes to ReportFile or stdout.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, progress io.Writer) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"batch_size", cfg.BatchSize,
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages,
	)

	c, closeCache, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	renderer := fetcher.NewRodRenderer(
		fetcher.WithControlURL(cfg.BrowserURL),
		fetcher.WithRenderTimeout(cfg.Timeout),
		fetcher.WithRenderUserAgent(cfg.UserAgent),
		fetcher.WithStealth(cfg.Stealth),
		fetcher.WithRenderLogger(logger),
	)
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	factory := func(seed string) (*pipeline.Pipeline, *pipeline.Run) {
		site := cfg.ForSite(seed)
		p := createPipelineForSeed(cfg, site, seed, c, renderer, logger)
		return p, pipeline.NewRun(seed, site.Options, cfg.Force)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	summaries := make([]*model.RunSummary, len(cfg.Seeds))

	var mu sync.Mutex
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(run *pipeline.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		summaries[index] = run.Summary
		fmt.Fprintf(progress, "[%d/%d] %s: %s\n", index+1, len(cfg.Seeds), run.SeedURL, run.Summary.Status)
	})

	fmt.Fprintf(progress, "Finished in %s\n", time.Since(startTime).Round(time.Millisecond))

	finished := make([]*model.RunSummary, 0, len(summaries))
	failed := 0
	for _, s := range summaries {
		if s == nil {
			continue
		}
		finished = append(finished, s)
		if s.Status == model.RunFailed {
			failed++
		}
	}

	if err := outputReport(cfg, finished, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRunsFailed, failed, len(cfg.Seeds))
	}
	return nil
}

// createPipelineForSeed wires the pipeline of one site from the global
// configuration and the site's resolved settings.
func createPipelineForSeed(
	cfg *config.Config,
	site config.SiteSettings,
	seed string,
	c *cache.Cache,
	renderer fetcher.Renderer,
	logger *slog.Logger,
) *pipeline.Pipeline {
	httpFetcher := fetcher.NewHTTPFetcher(
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(site.Headers),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithHTTPLogger(logger),
	)

	var f fetcher.Fetcher = httpFetcher
	if site.Render {
		f = fetcher.NewComposite(httpFetcher, renderer, fetcher.WithCompositeLogger(logger))
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineLinkCap(cfg.LinkCap),
		pipeline.WithPipelineConcurrency(cfg.Concurrency),
		pipeline.WithPipelineCrawlDelay(cfg.CrawlDelay),
		pipeline.WithPipelineTokens(site.DecorativeTokens, site.NavigationTokens),
		pipeline.WithPipelineEmitter(bundle.NewDirEmitter(
			cfg.SiteOutputDir(schema.Domain(seed)),
			bundle.WithLogger(logger),
		)),
		pipeline.WithPipelineLogger(logger),
	}
	if c != nil {
		configOpts = append(configOpts, pipeline.WithPipelineCache(c))
	}
	if cfg.RespectRobots {
		configOpts = append(configOpts,
			pipeline.WithPipelineRobots(crawler.NewRobotsGate(httpFetcher.Client(), cfg.UserAgent)))
	}
	if len(site.IgnorePatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineIgnorePatterns(site.IgnorePatterns))
	}
	if len(site.FollowPatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineFollowPatterns(site.FollowPatterns))
	}
	if !cfg.SkipAssets {
		configOpts = append(configOpts, pipeline.WithPipelineDownloader(asset.NewDownloader(
			asset.WithHTTPClient(httpFetcher.Client()),
			asset.WithUserAgent(cfg.UserAgent),
			asset.WithMaxSize(cfg.MaxAssetSize),
			asset.WithConcurrency(cfg.AssetConcurrency),
			asset.WithTimeout(cfg.Timeout),
			asset.WithLogger(logger),
		)))
	}

	return pipeline.DefaultPipeline(f, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
}

// openCache opens the configured cache backend. The returned close
// function is always safe to call. A disabled cache is nil.
func openCache(cfg *config.Config, logger *slog.Logger) (*cache.Cache, func(), error) {
	noop := func() {}
	if cfg.NoCache {
		return nil, noop, nil
	}

	opts := []cache.Option{
		cache.WithMaxAge(cfg.CacheMaxAge),
		cache.WithLogger(logger),
	}

	if cfg.CacheDB != "" {
		if err := ensureParentDir(cfg.CacheDB); err != nil {
			return nil, noop, err
		}
		store, err := cache.OpenSQLite(cfg.CacheDB, cache.DefaultSQLiteOptions())
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open cache database: %w", err)
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close cache database", "path", cfg.CacheDB, "error", err)
			}
		}
		return cache.New(store, opts...), closeFn, nil
	}

	if err := ensureParentDir(cfg.CacheFile); err != nil {
		return nil, noop, err
	}
	return cache.New(cache.NewJSONFileStore(cfg.CacheFile), opts...), noop, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// outputReport writes the run summaries in the requested format.
// A single summary uses the single-site layout.
func outputReport(cfg *config.Config, summaries []*model.RunSummary, stdout io.Writer) error {
	var writer report.Writer
	if cfg.ReportFile == "" {
		w, err := newReportWriter(cfg, stdout)
		if err != nil {
			return err
		}
		writer = w
	} else {
		if err := ensureParentDir(cfg.ReportFile); err != nil {
			return err
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		fileWriter, err := newReportWriter(cfg, f)
		if err != nil {
			return err
		}
		// The terminal still gets a readable summary when the report goes to a file.
		writer = report.NewMultiWriter(fileWriter,
			report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)))
	}

	var err error
	if len(summaries) == 1 {
		_, err = writer.Write(summaries[0])
		return err
	}
	_, err = writer.WriteBatch(summaries)
	return err
}

func newReportWriter(cfg *config.Config, w io.Writer) (report.Writer, error) {
	if report.Format(cfg.ReportFormat) == report.FormatText || cfg.ReportFormat == "" {
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose)), nil
	}
	return report.NewWriter(report.Format(cfg.ReportFormat), w)
}
