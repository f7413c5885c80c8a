package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitepack/internal/model"
)

// memStore is an in-memory Store.
type memStore struct {
	entries map[string]model.CacheEntry
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(_ context.Context) (map[string]model.CacheEntry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]model.CacheEntry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, entries map[string]model.CacheEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries = entries
	return nil
}

// fixedClock returns a clock reporting now.
func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func TestKey(t *testing.T) {
	t.Parallel()

	opts := model.CrawlOptions{MaxDepth: 2, MaxPages: 20}

	t.Run("equivalent URLs collide", func(t *testing.T) {
		t.Parallel()

		a := Key("HTTPS://Example.COM/", opts)
		b := Key("https://example.com", opts)
		if a != b {
			t.Errorf("expected equal keys, got %q and %q", a, b)
		}
	})

	t.Run("path case is preserved", func(t *testing.T) {
		t.Parallel()

		if Key("https://example.com/About", opts) == Key("https://example.com/about", opts) {
			t.Error("expected path case to matter")
		}
	})

	t.Run("differing maxPages never collide", func(t *testing.T) {
		t.Parallel()

		a := Key("https://example.com", model.CrawlOptions{MaxDepth: 2, MaxPages: 20})
		b := Key("https://example.com", model.CrawlOptions{MaxDepth: 2, MaxPages: 21})
		if a == b {
			t.Error("expected different keys for different options")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		if Key("https://example.com/x", opts) != Key("https://example.com/x", opts) {
			t.Error("expected identical keys")
		}
		if !strings.HasPrefix(Key("https://example.com/x", opts), "https://example.com/x#") {
			t.Errorf("unexpected key shape: %s", Key("https://example.com/x", opts))
		}
	})
}

func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opts := model.CrawlOptions{MaxDepth: 1, MaxPages: 5}
	seed := "https://example.com"

	newCache := func(age time.Duration) *Cache {
		store := &memStore{entries: map[string]model.CacheEntry{
			Key(seed, opts): {CacheKey: Key(seed, opts), URL: seed, Timestamp: now.Add(-age), Options: opts},
		}}
		return New(store, WithClock(fixedClock(now)), WithMaxAge(24*time.Hour))
	}

	t.Run("fresh entry skips crawl", func(t *testing.T) {
		t.Parallel()

		if newCache(23*time.Hour).ShouldCrawl(context.Background(), seed, opts, false) {
			t.Error("expected 23h old entry to be fresh")
		}
	})

	t.Run("stale entry triggers crawl", func(t *testing.T) {
		t.Parallel()

		if !newCache(25*time.Hour).ShouldCrawl(context.Background(), seed, opts, false) {
			t.Error("expected 25h old entry to be stale")
		}
	})

	t.Run("force always crawls", func(t *testing.T) {
		t.Parallel()

		if !newCache(time.Minute).ShouldCrawl(context.Background(), seed, opts, true) {
			t.Error("expected force to crawl")
		}
	})

	t.Run("missing entry crawls", func(t *testing.T) {
		t.Parallel()

		c := newCache(time.Minute)
		if !c.ShouldCrawl(context.Background(), seed, model.CrawlOptions{MaxDepth: 1, MaxPages: 6}, false) {
			t.Error("expected different options to miss the cache")
		}
	})

	t.Run("unreadable store crawls", func(t *testing.T) {
		t.Parallel()

		c := New(&memStore{loadErr: errors.New("disk on fire")})
		if !c.ShouldCrawl(context.Background(), seed, opts, false) {
			t.Error("expected unreadable store to be treated as empty")
		}
	})
}

func TestRecordCrawl(t *testing.T) {
	t.Parallel()

	t.Run("upserts with current time", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		store := &memStore{}
		c := New(store, WithClock(fixedClock(now)))
		opts := model.CrawlOptions{MaxDepth: 1, MaxPages: 5}

		meta := model.CacheMetadata{PagesCount: 3, AssetsCount: 2, CrawlDepth: 1, MaxPages: 5}
		if err := c.RecordCrawl(context.Background(), "https://example.com/", opts, meta); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		meta.PagesCount = 4
		if err := c.RecordCrawl(context.Background(), "https://EXAMPLE.com", opts, meta); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		if len(store.entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(store.entries))
		}
		entry, ok := c.Lookup(context.Background(), "https://example.com", opts)
		if !ok {
			t.Fatal("expected entry to be found")
		}
		if entry.Metadata.PagesCount != 4 {
			t.Errorf("expected pagesCount 4, got %d", entry.Metadata.PagesCount)
		}
		if !entry.Timestamp.Equal(now) {
			t.Errorf("expected timestamp %v, got %v", now, entry.Timestamp)
		}
	})

	t.Run("write failure is a CacheError", func(t *testing.T) {
		t.Parallel()

		c := New(&memStore{saveErr: errors.New("read-only")})
		err := c.RecordCrawl(context.Background(), "https://example.com", model.CrawlOptions{MaxPages: 1}, model.CacheMetadata{})
		if !errors.Is(err, ErrCache) {
			t.Fatalf("expected ErrCache, got %v", err)
		}
		var cerr *CacheError
		if !errors.As(err, &cerr) || cerr.Op != "save" {
			t.Errorf("expected save CacheError, got %v", err)
		}
	})
}

func TestStatsAndPrune(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := func(key string, age time.Duration, pages, assets int) model.CacheEntry {
		return model.CacheEntry{
			CacheKey:  key,
			URL:       "https://" + key,
			Timestamp: now.Add(-age),
			Metadata:  model.CacheMetadata{PagesCount: pages, AssetsCount: assets},
		}
	}
	newStore := func() *memStore {
		return &memStore{entries: map[string]model.CacheEntry{
			"a": entry("a", time.Hour, 3, 1),
			"b": entry("b", 30*time.Hour, 5, 2),
			"c": entry("c", 72*time.Hour, 1, 0),
		}}
	}

	t.Run("stats aggregates without writing", func(t *testing.T) {
		t.Parallel()

		store := newStore()
		s := New(store, WithClock(fixedClock(now))).Stats(context.Background())
		if s.Count != 3 || s.TotalPages != 9 || s.TotalAssets != 3 {
			t.Errorf("unexpected stats: %+v", s)
		}
		if !s.Oldest.Equal(now.Add(-72*time.Hour)) || !s.Newest.Equal(now.Add(-time.Hour)) {
			t.Errorf("unexpected oldest/newest: %v %v", s.Oldest, s.Newest)
		}
		if store.saves != 0 {
			t.Errorf("expected no saves, got %d", store.saves)
		}
	})

	t.Run("prune removes old entries", func(t *testing.T) {
		t.Parallel()

		store := newStore()
		n, err := New(store, WithClock(fixedClock(now))).Prune(context.Background(), 24*time.Hour)
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 pruned, got %d", n)
		}
		if _, ok := store.entries["a"]; !ok || len(store.entries) != 1 {
			t.Errorf("unexpected remaining entries: %v", store.entries)
		}
	})

	t.Run("clear empties the store", func(t *testing.T) {
		t.Parallel()

		store := newStore()
		if err := New(store).Clear(context.Background()); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if len(store.entries) != 0 {
			t.Errorf("expected empty store, got %d", len(store.entries))
		}
	})
}

func TestJSONFileStore(t *testing.T) {
	t.Parallel()

	t.Run("missing file is empty", func(t *testing.T) {
		t.Parallel()

		s := NewJSONFileStore(filepath.Join(t.TempDir(), "none.json"))
		entries, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %d", len(entries))
		}
	})

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "crawl-cache.json")
		s := NewJSONFileStore(path)
		ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		in := map[string]model.CacheEntry{
			"k": {CacheKey: "k", URL: "https://example.com", Timestamp: ts, Options: model.CrawlOptions{MaxDepth: 1, MaxPages: 2}},
		}
		if err := s.Save(context.Background(), in); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		out, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !out["k"].Timestamp.Equal(ts) || out["k"].Options.MaxPages != 2 {
			t.Errorf("unexpected entry: %+v", out["k"])
		}
	})

	t.Run("corrupt file is treated as empty by the cache", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "crawl-cache.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		s := NewJSONFileStore(path)
		if _, err := s.Load(context.Background()); err == nil {
			t.Error("expected parse error from store")
		}

		c := New(s)
		opts := model.CrawlOptions{MaxDepth: 0, MaxPages: 1}
		if !c.ShouldCrawl(context.Background(), "https://example.com", opts, false) {
			t.Error("expected crawl on corrupt cache")
		}
		if err := c.RecordCrawl(context.Background(), "https://example.com", opts, model.CacheMetadata{PagesCount: 1}); err != nil {
			t.Fatalf("expected corrupt file to be overwritten: %v", err)
		}
		if c.ShouldCrawl(context.Background(), "https://example.com", opts, false) {
			t.Error("expected fresh entry after record")
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()

		s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "cache.db"), DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer s.Close()

		ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		in := map[string]model.CacheEntry{
			"a": {CacheKey: "a", URL: "https://a.example", Timestamp: ts, Options: model.CrawlOptions{MaxDepth: 1, MaxPages: 3},
				Metadata: model.CacheMetadata{PagesCount: 3, AssetsCount: 1, CrawlDepth: 1, MaxPages: 3}},
			"b": {CacheKey: "b", URL: "https://b.example", Timestamp: ts.Add(time.Hour)},
		}
		if err := s.Save(context.Background(), in); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		out, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(out))
		}
		if out["a"].Metadata.PagesCount != 3 || out["a"].Options.MaxPages != 3 {
			t.Errorf("unexpected entry a: %+v", out["a"])
		}
		if !out["b"].Timestamp.Equal(ts.Add(time.Hour)) {
			t.Errorf("unexpected timestamp: %v", out["b"].Timestamp)
		}

		delete(in, "a")
		if err := s.Save(context.Background(), in); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		out, err = s.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if _, ok := out["a"]; ok {
			t.Error("expected entry a to be removed")
		}
	})

	t.Run("CreateIfNotExists=false requires file", func(t *testing.T) {
		t.Parallel()

		_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db"), SQLiteOptions{})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("works as cache backend", func(t *testing.T) {
		t.Parallel()

		s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer s.Close()

		c := New(s)
		opts := model.CrawlOptions{MaxDepth: 1, MaxPages: 2}
		if err := c.RecordCrawl(context.Background(), "https://example.com", opts, model.CacheMetadata{PagesCount: 2}); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if c.ShouldCrawl(context.Background(), "https://example.com/", opts, false) {
			t.Error("expected fresh entry")
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	if parseTimestamp("2025-01-02 03:04:05").IsZero() {
		t.Error("expected sqlite datetime format to parse")
	}
	if !parseTimestamp("yesterday").IsZero() {
		t.Error("expected zero time for unknown format")
	}
}
