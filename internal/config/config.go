package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitepack/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitepack"

	// DefaultMaxDepth keeps a crawl to the seed, its links, and their links.
	DefaultMaxDepth = 2

	// DefaultMaxPages is the maximum number of pages per site.
	DefaultMaxPages = 20

	// DefaultTimeout is the per-fetch timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency fetches one page at a time.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of sites processed at once.
	DefaultBatchSize = 2

	// DefaultCacheMaxAge is how long a recorded crawl stays fresh.
	DefaultCacheMaxAge = 24 * time.Hour

	// DefaultCrawlDelay disables the politeness limiter.
	DefaultCrawlDelay = time.Duration(0)

	// DefaultMaxBodySize limits the response body of a page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxAssetSize limits a downloaded image.
	DefaultMaxAssetSize = 10 * 1024 * 1024 // 10MB

	// DefaultLinkCap is the number of new links enqueued per page.
	DefaultLinkCap = 20

	// DefaultAssetConcurrency is the number of parallel image downloads.
	DefaultAssetConcurrency = 4

	// DefaultUserAgent identifies sitepack in HTTP requests.
	DefaultUserAgent = "sitepack/1.0 (+https://github.com/nao1215/sitepack)"

	// DefaultReportFormat is human-readable text.
	DefaultReportFormat = "text"

	// CacheFileName is the name of the JSON cache file.
	CacheFileName = "crawl-cache.json"
)

// Config holds all configuration options for sitepack.
// It is populated from CLI flags and passed through the application
// rather than kept as global state.
type Config struct {
	// Seeds are the URLs to crawl. Each seed is an independent run.
	Seeds []string

	// MaxDepth is the maximum link distance from the seed.
	// Depth 0 means only fetch the seed page.
	MaxDepth int

	// MaxPages is the maximum number of pages per site.
	MaxPages int

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// Concurrency is the number of pages fetched in parallel within one crawl.
	Concurrency int

	// BatchSize is the number of sites processed in parallel.
	BatchSize int

	// LinkCap is the number of new links enqueued per page.
	LinkCap int

	// CrawlDelay is the minimum delay between two fetches of one crawl.
	CrawlDelay time.Duration

	// RespectRobots makes the crawler honor robots.txt.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum page body size in bytes.
	MaxBodySize int64

	// Render loads pages in a headless browser so scripts run.
	Render bool

	// BrowserURL is the DevTools WebSocket URL of an existing browser.
	// When empty a local browser is launched on demand.
	BrowserURL string

	// Stealth hides common headless browser fingerprints when rendering.
	Stealth bool

	// SkipAssets disables image downloads.
	SkipAssets bool

	// AssetConcurrency is the number of parallel image downloads.
	AssetConcurrency int

	// MaxAssetSize is the maximum size of one image in bytes.
	MaxAssetSize int64

	// Force crawls even when the cache holds a fresh entry.
	Force bool

	// NoCache disables the crawl cache entirely.
	NoCache bool

	// CacheMaxAge is how long a recorded crawl stays fresh.
	CacheMaxAge time.Duration

	// CacheFile is the JSON cache file.
	// Defaults to $XDG_CACHE_HOME/sitepack/crawl-cache.json.
	CacheFile string

	// CacheDB is a SQLite cache database. When set it is used instead of
	// CacheFile.
	CacheDB string

	// OutputDir is the directory bundles are written to, one
	// subdirectory per host. Defaults to $XDG_DATA_HOME/sitepack/sites.
	OutputDir string

	// ReportFormat is text, markdown or json.
	ReportFormat string

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches the log output to JSON lines.
	JSONLogs bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitepack in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the settings loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:         DefaultMaxDepth,
		MaxPages:         DefaultMaxPages,
		Timeout:          DefaultTimeout,
		Concurrency:      DefaultConcurrency,
		BatchSize:        DefaultBatchSize,
		LinkCap:          DefaultLinkCap,
		CrawlDelay:       DefaultCrawlDelay,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		AssetConcurrency: DefaultAssetConcurrency,
		MaxAssetSize:     DefaultMaxAssetSize,
		CacheMaxAge:      DefaultCacheMaxAge,
		CacheFile:        filepath.Join(XDGCacheDir(), CacheFileName),
		OutputDir:        filepath.Join(XDGDataDir(), "sites"),
		ReportFormat:     DefaultReportFormat,
	}
}

// XDGDataDir returns the XDG data directory for sitepack.
// On Linux: ~/.local/share/sitepack
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitepack.
// On Linux: ~/.config/sitepack
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for sitepack.
// On Linux: ~/.cache/sitepack
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if !validSeed(seed) {
			return ErrInvalidSeed
		}
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 || c.AssetConcurrency <= 0 || c.LinkCap <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 || c.MaxAssetSize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.CacheMaxAge <= 0 {
		return ErrInvalidCacheMaxAge
	}

	switch strings.ToLower(c.ReportFormat) {
	case "", "text", "markdown", "md", "json":
	default:
		return ErrInvalidReportFormat
	}

	return nil
}

func validSeed(seed string) bool {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CrawlOptions returns the global crawl bounds.
func (c *Config) CrawlOptions() model.CrawlOptions {
	return model.CrawlOptions{MaxDepth: c.MaxDepth, MaxPages: c.MaxPages}
}

// SiteOutputDir returns the bundle directory of a host.
func (c *Config) SiteOutputDir(host string) string {
	return filepath.Join(c.OutputDir, host)
}

// SiteSettings are the effective settings of one site: the global values
// with the config file's defaults and site section applied.
type SiteSettings struct {
	Options          model.CrawlOptions
	Render           bool
	Headers          map[string]string
	IgnorePatterns   []string
	FollowPatterns   []string
	DecorativeTokens []string
	NavigationTokens []string
}

// ForSite resolves the settings of the site a seed URL belongs to.
func (c *Config) ForSite(seed string) SiteSettings {
	s := SiteSettings{
		Options: c.CrawlOptions(),
		Render:  c.Render,
		Headers: make(map[string]string),
	}
	if c.SiteConfigs == nil {
		return s
	}

	site := c.SiteConfigs.GetSiteConfig(hostOf(seed))
	if site.Depth > 0 {
		s.Options.MaxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		s.Options.MaxPages = site.MaxPages
	}
	if site.Render {
		s.Render = true
	}
	for k, v := range site.Headers {
		s.Headers[k] = v
	}
	if site.Cookie != "" {
		s.Headers["Cookie"] = site.Cookie
	}
	s.IgnorePatterns = site.IgnorePatterns
	s.FollowPatterns = site.FollowPatterns
	s.DecorativeTokens = site.DecorativeTokens
	s.NavigationTokens = site.NavigationTokens
	return s
}

func hostOf(seed string) string {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
