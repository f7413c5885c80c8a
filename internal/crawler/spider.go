package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/sitepack/internal/fetcher"
	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/slug"
)

const (
	// DefaultMaxDepth is the default link distance from the seed.
	DefaultMaxDepth = 2

	// DefaultMaxPages is the default page budget.
	DefaultMaxPages = 20

	// DefaultLinkCap is the number of new links enqueued per page.
	DefaultLinkCap = 20
)

// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
var ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

// Spider crawls one site through a Fetcher.
type Spider struct {
	fetcher fetcher.Fetcher

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed page, 1 means one level of links, etc.
	maxDepth int

	// maxPages is the hard ceiling on fetched pages.
	maxPages int

	// linkCap bounds how many new links one page may enqueue.
	linkCap int

	// concurrency is the number of fetches in flight within a level.
	concurrency int

	// limiter spaces out requests when a delay is configured.
	limiter *rate.Limiter

	// robots gates every URL when set.
	robots *RobotsGate

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns restrict crawling to matching paths when non-empty.
	followPatterns []string

	logger *slog.Logger

	// visited holds normalized URLs already enqueued or fetched.
	visited map[string]struct{}

	// mutex protects visited.
	mutex sync.Mutex

	// budget is the number of fetches still allowed.
	budget atomic.Int64

	fetched atomic.Int64
	failed  atomic.Int64
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithCrawlOptions sets depth and page bounds together.
func WithCrawlOptions(opts model.CrawlOptions) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = opts.MaxDepth
		s.maxPages = opts.MaxPages
	}
}

// WithLinkCap sets how many new links a single page may enqueue.
func WithLinkCap(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.linkCap = n
		}
	}
}

// WithConcurrency sets the number of concurrent fetches per level.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDelay sets the minimum spacing between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithRobots makes the spider skip URLs disallowed by robots.txt.
func WithRobots(gate *RobotsGate) SpiderOption {
	return func(s *Spider) {
		s.robots = gate
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that loads pages with f.
func NewSpider(f fetcher.Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     f,
		maxDepth:    DefaultMaxDepth,
		maxPages:    DefaultMaxPages,
		linkCap:     DefaultLinkCap,
		concurrency: 1,
		logger:      slog.Default(),
		visited:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// Crawl fetches the seed and the pages reachable from it within the depth
// and page bounds, returning them in crawl order. Fetch failures are
// logged and skipped. On cancellation the pages fetched so far are
// returned together with the context error.
func (s *Spider) Crawl(ctx context.Context, seed string) ([]*model.PageRecord, error) {
	start, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	s.Reset()
	s.budget.Store(int64(s.maxPages))

	hosts := map[string]struct{}{strings.ToLower(start.Host): {}}
	pages := make([]*model.PageRecord, 0)
	// Distinct URLs can still share a path, e.g. /about and /about.html.
	paths := make(map[string]struct{})

	level := []queueItem{{url: start.String(), depth: 0}}
	s.tryVisit(start.String())

	for depth := 0; len(level) > 0 && depth <= s.maxDepth; depth++ {
		if s.budget.Load() <= 0 {
			break
		}

		results := s.fetchLevel(ctx, level)

		next := make([]queueItem, 0)
		for i, item := range level {
			res := results[i]
			if res == nil {
				continue
			}
			if item.depth == 0 && res.FinalURL != "" {
				// A redirected seed moves the crawl to the final host.
				if fu, err := url.Parse(res.FinalURL); err == nil && fu.Host != "" {
					hosts[strings.ToLower(fu.Host)] = struct{}{}
				}
			}

			pages = append(pages, &model.PageRecord{
				URL:      item.url,
				HTML:     res.HTML,
				Metadata: res.Metadata,
				Depth:    item.depth,
				Path:     slug.Unique(slug.PagePath(item.url), paths),
			})

			if item.depth >= s.maxDepth {
				continue
			}
			next = append(next, s.enqueueLinks(res.Links, item.depth+1, hosts)...)
		}

		if err := ctx.Err(); err != nil {
			return pages, err
		}
		level = next
	}

	s.logger.Debug("crawl finished",
		"seed", seed,
		"pages", len(pages),
		"failed", s.failed.Load(),
		"visited", s.visitedCount(),
	)
	return pages, nil
}

// fetchLevel fetches every item of one depth level and returns results
// aligned with items. Skipped and failed items yield nil.
func (s *Spider) fetchLevel(ctx context.Context, items []queueItem) []*fetcher.Result {
	results := make([]*fetcher.Result, len(items))

	if s.concurrency <= 1 {
		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.fetchOne(ctx, item)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.fetchOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchOne reserves budget, waits for politeness and fetches. The
// reservation is refunded when the page is not fetched.
func (s *Spider) fetchOne(ctx context.Context, item queueItem) *fetcher.Result {
	if !s.reserve() {
		return nil
	}

	if s.robots != nil && !s.robots.Allowed(ctx, item.url) {
		s.refund()
		s.logger.Debug("disallowed by robots.txt", "url", item.url)
		return nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.refund()
			return nil
		}
	}

	res, err := s.fetcher.Fetch(ctx, item.url)
	if err != nil {
		s.refund()
		s.failed.Add(1)
		s.logger.Warn("skipping page", "url", item.url, "depth", item.depth, "error", err)
		return nil
	}
	s.fetched.Add(1)
	return res
}

// enqueueLinks returns up to linkCap new items for links on the crawl hosts.
func (s *Spider) enqueueLinks(links []string, depth int, hosts map[string]struct{}) []queueItem {
	items := make([]queueItem, 0)
	for _, link := range links {
		if len(items) >= s.linkCap {
			break
		}
		if !isSameSite(hosts, link) || !s.shouldCrawl(link) {
			continue
		}
		if !s.tryVisit(link) {
			continue
		}
		items = append(items, queueItem{url: link, depth: depth})
	}
	return items
}

// reserve takes one unit of page budget.
func (s *Spider) reserve() bool {
	for {
		n := s.budget.Load()
		if n <= 0 {
			return false
		}
		if s.budget.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (s *Spider) refund() {
	s.budget.Add(1)
}

// tryVisit atomically checks and inserts the URL into the visited set.
// It returns false when the URL was already present.
func (s *Spider) tryVisit(pageURL string) bool {
	key := normalizeURL(pageURL)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.visited[key]; ok {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}

func (s *Spider) visitedCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.visited)
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]struct{})
	s.fetched.Store(0)
	s.failed.Store(0)
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	return SpiderStats{
		PagesVisited: int(s.fetched.Load()),
		PagesFailed:  int(s.failed.Load()),
		URLsQueued:   s.visitedCount(),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of pages successfully fetched.
	PagesVisited int

	// PagesFailed is the number of fetches that failed and were skipped.
	PagesFailed int

	// URLsQueued is the number of unique URLs encountered.
	URLsQueued int
}

// normalizeURL normalizes a URL for deduplication: scheme and host are
// lowercased, the fragment is dropped, and "/about/" equals "/about".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
		if u.Path == "" {
			u.Path = "/"
		}
	}
	return u.String()
}

// isSameSite checks if a URL is on one of the crawl hosts.
func isSameSite(hosts map[string]struct{}, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	_, ok := hosts[strings.ToLower(u.Host)]
	return ok
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
