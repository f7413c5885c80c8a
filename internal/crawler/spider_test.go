package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitepack/internal/fetcher"
)

// fakeFetcher serves a link graph from memory.
type fakeFetcher struct {
	mu    sync.Mutex
	site  map[string][]string
	fail  map[string]bool
	calls map[string]int
}

func newFakeFetcher(site map[string][]string) *fakeFetcher {
	return &fakeFetcher{site: site, fail: map[string]bool{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Result, error) {
	f.mu.Lock()
	f.calls[rawURL]++
	fail := f.fail[rawURL]
	links, ok := f.site[rawURL]
	f.mu.Unlock()

	if fail || !ok {
		return nil, &fetcher.FetchError{URL: rawURL, Err: errors.New("boom")}
	}
	return &fetcher.Result{
		URL:      rawURL,
		FinalURL: rawURL,
		HTML:     "<html><body>" + rawURL + "</body></html>",
		Links:    links,
	}, nil
}

func (f *fakeFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gridSite builds a site where every page links to width children and
// back to the root, down to the given depth.
func gridSite(width, depth int) map[string][]string {
	site := map[string][]string{}
	const root = "https://example.com"
	var build func(prefix string, d int)
	build = func(prefix string, d int) {
		links := []string{root}
		if d < depth {
			for i := 0; i < width; i++ {
				child := fmt.Sprintf("%s/p%d", prefix, i)
				links = append(links, child)
				build(child, d+1)
			}
		}
		site[prefix] = links
	}
	build(root, 0)
	return site
}

func TestSpider(t *testing.T) {
	t.Parallel()

	t.Run("enqueues internal links only", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{
			"https://example.com": {
				"https://example.com/a",
				"https://example.com/b",
				"https://example.com/c",
				"https://other.example/x",
			},
			"https://example.com/a":   {},
			"https://example.com/b":   {},
			"https://example.com/c":   {},
			"https://other.example/x": {},
		})
		s := NewSpider(f, WithMaxDepth(1), WithMaxPages(5), WithLogger(quietLogger()))

		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 4 {
			t.Fatalf("expected 4 pages, got %d", len(pages))
		}
		for _, p := range pages[1:] {
			if p.Depth != 1 {
				t.Errorf("expected depth 1 for %s, got %d", p.URL, p.Depth)
			}
		}
		if f.callCount("https://other.example/x") != 0 {
			t.Error("external link must never be fetched")
		}
		if pages[0].Path != "index.html" || pages[1].Path != "a.html" {
			t.Errorf("unexpected paths: %q %q", pages[0].Path, pages[1].Path)
		}
	})

	t.Run("never fetches a URL twice", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{
			"https://example.com":   {"https://example.com/a", "https://example.com/a#x", "https://EXAMPLE.com/b"},
			"https://example.com/a": {"https://example.com", "https://example.com/b", "https://example.com/a/"},
			"https://EXAMPLE.com/b": {"https://example.com/a", "https://example.com/"},
		})
		s := NewSpider(f, WithMaxDepth(5), WithMaxPages(50), WithLogger(quietLogger()))

		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		seen := map[string]bool{}
		for _, p := range pages {
			key := normalizeURL(p.URL)
			if seen[key] {
				t.Errorf("duplicate page %s", p.URL)
			}
			seen[key] = true
		}
		if len(pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(pages))
		}
		if f.totalCalls() != 3 {
			t.Errorf("expected 3 fetches, got %d", f.totalCalls())
		}
	})

	t.Run("respects depth and page bounds", func(t *testing.T) {
		t.Parallel()

		site := gridSite(3, 4)
		for _, concurrency := range []int{1, 4} {
			for _, tc := range []struct{ depth, pages int }{{0, 10}, {1, 2}, {2, 100}, {3, 7}, {4, 1}} {
				s := NewSpider(newFakeFetcher(site),
					WithMaxDepth(tc.depth),
					WithMaxPages(tc.pages),
					WithConcurrency(concurrency),
					WithLogger(quietLogger()),
				)
				pages, err := s.Crawl(context.Background(), "https://example.com")
				if err != nil {
					t.Fatalf("crawl failed: %v", err)
				}
				if len(pages) > tc.pages {
					t.Errorf("c=%d d=%d p=%d: got %d pages", concurrency, tc.depth, tc.pages, len(pages))
				}
				for _, p := range pages {
					if p.Depth > tc.depth {
						t.Errorf("c=%d: page %s at depth %d exceeds %d", concurrency, p.URL, p.Depth, tc.depth)
					}
				}
			}
		}
	})

	t.Run("depth 2 with ample budget reaches every page", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(newFakeFetcher(gridSite(2, 2)), WithMaxDepth(2), WithMaxPages(100), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 7 {
			t.Errorf("expected 1+2+4 pages, got %d", len(pages))
		}
	})

	t.Run("skips failures and refunds budget", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{
			"https://example.com":   {"https://example.com/a", "https://example.com/b", "https://example.com/c"},
			"https://example.com/a": {},
			"https://example.com/b": {},
			"https://example.com/c": {},
		})
		f.fail["https://example.com/a"] = true

		s := NewSpider(f, WithMaxDepth(1), WithMaxPages(3), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages after refund, got %d", len(pages))
		}
		if pages[1].URL != "https://example.com/b" || pages[2].URL != "https://example.com/c" {
			t.Errorf("unexpected pages %s %s", pages[1].URL, pages[2].URL)
		}
		if st := s.Stats(); st.PagesFailed != 1 || st.PagesVisited != 3 {
			t.Errorf("unexpected stats %+v", st)
		}
	})

	t.Run("failed seed yields no pages", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{})
		pages, err := NewSpider(f, WithLogger(quietLogger())).Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(pages) != 0 {
			t.Errorf("expected no pages, got %d", len(pages))
		}
	})

	t.Run("caps links per page", func(t *testing.T) {
		t.Parallel()

		site := map[string][]string{}
		links := make([]string, 0, 30)
		for i := 0; i < 30; i++ {
			u := fmt.Sprintf("https://example.com/l%d", i)
			links = append(links, u)
			site[u] = nil
		}
		site["https://example.com"] = links

		s := NewSpider(newFakeFetcher(site), WithMaxDepth(1), WithMaxPages(100), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 1+DefaultLinkCap {
			t.Errorf("expected %d pages, got %d", 1+DefaultLinkCap, len(pages))
		}
	})

	t.Run("applies ignore patterns", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{
			"https://example.com":         {"https://example.com/admin/x", "https://example.com/doc.pdf", "https://example.com/ok"},
			"https://example.com/admin/x": {},
			"https://example.com/doc.pdf": {},
			"https://example.com/ok":      {},
		})
		s := NewSpider(f, WithMaxDepth(1), WithIgnorePatterns([]string{"/admin/*", "*.pdf"}), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 2 || pages[1].URL != "https://example.com/ok" {
			t.Errorf("unexpected pages: %d", len(pages))
		}
	})

	t.Run("rejects invalid seed", func(t *testing.T) {
		t.Parallel()

		for _, seed := range []string{"example.com", "ftp://example.com", "::bad"} {
			if _, err := NewSpider(newFakeFetcher(nil)).Crawl(context.Background(), seed); !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("%q: expected ErrInvalidSeed, got %v", seed, err)
			}
		}
	})

	t.Run("returns partial pages on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		f := &cancellingFetcher{inner: newFakeFetcher(gridSite(2, 2)), cancel: cancel}
		pages, err := NewSpider(f, WithLogger(quietLogger())).Crawl(ctx, "https://example.com")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(pages) != 1 {
			t.Errorf("expected seed page only, got %d", len(pages))
		}
	})

	t.Run("honours delay", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string][]string{
			"https://example.com":   {"https://example.com/a"},
			"https://example.com/a": {},
		})
		start := time.Now()
		s := NewSpider(f, WithMaxDepth(1), WithDelay(50*time.Millisecond), WithLogger(quietLogger()))
		if _, err := s.Crawl(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Errorf("expected requests to be spaced, took %v", elapsed)
		}
	})
}

// cancellingFetcher cancels the crawl after the first fetch.
type cancellingFetcher struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
}

func (c *cancellingFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	res, err := c.inner.Fetch(ctx, rawURL)
	c.cancel()
	return res, err
}

func TestSpiderWithHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, `<html><head><title>Home</title></head><body>
				<a href="/about">About</a><a href="/contact">Contact</a>
				<a href="https://external.example/">Out</a></body></html>`)
		case "/about", "/contact":
			_, _ = io.WriteString(w, `<html><head><title>`+r.URL.Path+`</title></head><body><a href="/">Home</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "User-agent: *\nDisallow: /contact\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("crawls real pages", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(fetcher.NewHTTPFetcher(), WithMaxDepth(1), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		if pages[0].Metadata.Title != "Home" {
			t.Errorf("unexpected title %q", pages[0].Metadata.Title)
		}
	})

	t.Run("robots.txt disallows pages", func(t *testing.T) {
		t.Parallel()

		gate := NewRobotsGate(srv.Client(), "sitepack")
		s := NewSpider(fetcher.NewHTTPFetcher(), WithMaxDepth(1), WithRobots(gate), WithLogger(quietLogger()))
		pages, err := s.Crawl(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		for _, p := range pages {
			if strings.HasSuffix(p.URL, "/contact") {
				t.Error("expected /contact to be disallowed")
			}
		}
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin/dashboard", true},
		{"/admin/*", "/admin", true},
		{"/admin/*", "/administrator", false},
		{"*.pdf", "/docs/file.pdf", true},
		{"*.pdf", "/docs/file.html", false},
		{"/api/v?", "/api/v1", true},
		{"/logout*", "/logout-now", true},
		{"[", "/x", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTPS://Example.com":        "https://example.com/",
		"https://example.com/":       "https://example.com/",
		"https://example.com/a/#top": "https://example.com/a",
		"https://example.com/a?x=1":  "https://example.com/a?x=1",
	}
	for in, want := range tests {
		if got := normalizeURL(in); got != want {
			t.Errorf("normalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSpiderAssignsDistinctPaths(t *testing.T) {
	t.Parallel()

	const root = "https://example.com"
	f := newFakeFetcher(map[string][]string{
		root:                 {root + "/about", root + "/about.html", root + "/event?id=1", root + "/event?id=2"},
		root + "/about":      nil,
		root + "/about.html": nil,
		root + "/event?id=1": nil,
		root + "/event?id=2": nil,
	})

	pages, err := NewSpider(f, WithMaxDepth(1), WithMaxPages(10), WithLogger(quietLogger())).Crawl(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		root:                 "index.html",
		root + "/about":      "about.html",
		root + "/about.html": "about-2.html",
		root + "/event?id=1": "event_id_1.html",
		root + "/event?id=2": "event_id_2.html",
	}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(pages))
	}
	for _, p := range pages {
		if p.Path != want[p.URL] {
			t.Errorf("%s: expected path %q, got %q", p.URL, want[p.URL], p.Path)
		}
	}
}
