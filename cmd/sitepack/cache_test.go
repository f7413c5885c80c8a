package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/sitepack/internal/cache"
	"github.com/nao1215/sitepack/internal/model"
)

func seedCache(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crawl-cache.json")
	c := cache.New(cache.NewJSONFileStore(path), cache.WithLogger(quietLogger()))
	opts := model.CrawlOptions{MaxDepth: 2, MaxPages: 20}
	for _, u := range []string{"https://a.example", "https://b.example"} {
		meta := model.CacheMetadata{PagesCount: 3, AssetsCount: 1, CrawlDepth: 2, MaxPages: 20}
		if err := c.RecordCrawl(context.Background(), u, opts, meta); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func runCacheCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewCacheCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCacheCmd(t *testing.T) {
	t.Parallel()

	t.Run("stats", func(t *testing.T) {
		t.Parallel()

		path := seedCache(t)
		out, err := runCacheCmd(t, "stats", "--cache-file", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Entries:      2", "Total pages:  6", "Total assets: 2", "Newest:"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("prune keeps fresh entries", func(t *testing.T) {
		t.Parallel()

		path := seedCache(t)
		out, err := runCacheCmd(t, "prune", "--cache-file", path, "--max-age", "1h")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Removed 0 entries") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("prune rejects non-positive age", func(t *testing.T) {
		t.Parallel()

		path := seedCache(t)
		if _, err := runCacheCmd(t, "prune", "--cache-file", path, "--max-age", "0s"); err == nil {
			t.Error("expected error for zero max age")
		}
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		path := seedCache(t)
		if _, err := runCacheCmd(t, "clear", "--cache-file", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := runCacheCmd(t, "stats", "--cache-file", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Entries:      0") {
			t.Errorf("expected empty cache, got %q", out)
		}
	})
}
