package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitepack/internal/model"
)

// DefaultMaxAge is the freshness window applied when none is configured.
const DefaultMaxAge = 24 * time.Hour

// Store persists the whole entry map.
// Implementations are read-modify-write: Save replaces every entry.
type Store interface {
	Load(ctx context.Context) (map[string]model.CacheEntry, error)
	Save(ctx context.Context, entries map[string]model.CacheEntry) error
}

// Cache decides whether a seed needs crawling and records completed crawls.
// It is an explicit object owned by the caller; there is no process-wide
// cache state.
type Cache struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger

	// mu serializes load-mutate-save cycles within this process.
	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge sets the age after which an entry is stale.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		c.maxAge = d
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used for recovered store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		maxAge: DefaultMaxAge,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAge returns the configured freshness window.
func (c *Cache) MaxAge() time.Duration {
	return c.maxAge
}

// ShouldCrawl reports whether the seed must be crawled.
// It is always true when force is set; otherwise it is true when no entry
// exists or the entry is older than the max age.
func (c *Cache) ShouldCrawl(ctx context.Context, rawURL string, opts model.CrawlOptions, force bool) bool {
	if force {
		return true
	}
	entry, ok := c.Lookup(ctx, rawURL, opts)
	if !ok {
		return true
	}
	return entry.Age(c.now()) > c.maxAge
}

// Lookup returns the entry for the seed and options, if any.
func (c *Cache) Lookup(ctx context.Context, rawURL string, opts model.CrawlOptions) (model.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	entry, ok := entries[Key(rawURL, opts)]
	return entry, ok
}

// RecordCrawl upserts the entry for a successful crawl with the current time.
func (c *Cache) RecordCrawl(ctx context.Context, rawURL string, opts model.CrawlOptions, meta model.CacheMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	key := Key(rawURL, opts)
	entries[key] = model.CacheEntry{
		CacheKey:  key,
		URL:       rawURL,
		Timestamp: c.now().UTC(),
		Options:   opts,
		Metadata:  meta,
	}
	if err := c.store.Save(ctx, entries); err != nil {
		return &CacheError{Op: "save", Err: err}
	}
	return nil
}

// Stats aggregates all entries. It never writes to the store.
type Stats struct {
	Count       int       `json:"count"`
	Oldest      time.Time `json:"oldest,omitzero"`
	Newest      time.Time `json:"newest,omitzero"`
	TotalPages  int       `json:"totalPages"`
	TotalAssets int       `json:"totalAssets"`
}

// Stats returns aggregate information about the cached crawls.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	for _, e := range c.load(ctx) {
		s.Count++
		s.TotalPages += e.Metadata.PagesCount
		s.TotalAssets += e.Metadata.AssetsCount
		if s.Oldest.IsZero() || e.Timestamp.Before(s.Oldest) {
			s.Oldest = e.Timestamp
		}
		if e.Timestamp.After(s.Newest) {
			s.Newest = e.Timestamp
		}
	}
	return s
}

// Prune deletes entries older than maxAge and returns how many were removed.
// The store is not written when nothing is stale.
func (c *Cache) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	now := c.now()
	removed := 0
	for key, e := range entries {
		if e.Age(now) > maxAge {
			delete(entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := c.store.Save(ctx, entries); err != nil {
		return 0, &CacheError{Op: "prune", Err: err}
	}
	return removed, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, map[string]model.CacheEntry{}); err != nil {
		return &CacheError{Op: "clear", Err: err}
	}
	return nil
}

// load reads the store, treating any failure as an empty cache.
func (c *Cache) load(ctx context.Context) map[string]model.CacheEntry {
	entries, err := c.store.Load(ctx)
	if err != nil {
		cerr := &CacheError{Op: "load", Err: err}
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("treating crawl cache as empty", "error", cerr)
		}
		return map[string]model.CacheEntry{}
	}
	if entries == nil {
		entries = map[string]model.CacheEntry{}
	}
	return entries
}
