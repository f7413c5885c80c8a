package asset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/slug"
)

const (
	// DefaultConcurrency is the number of parallel downloads.
	DefaultConcurrency = 4

	// DefaultMaxSize caps the size of one image.
	DefaultMaxSize int64 = 10 * 1024 * 1024

	// DefaultTimeout is the per-download timeout.
	DefaultTimeout = 30 * time.Second
)

// Downloader fetches content images.
type Downloader struct {
	client      *http.Client
	userAgent   string
	maxSize     int64
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithMaxSize sets the per-image size limit in bytes.
func WithMaxSize(n int64) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithConcurrency sets the number of parallel downloads.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithTimeout sets the per-download timeout.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:      &http.Client{},
		userAgent:   "sitepack",
		maxSize:     DefaultMaxSize,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ImageURLs returns the distinct content image sources of pages in page
// order, followed by the first logo candidate of the seed page.
// Pages without extracted content are skipped.
func ImageURLs(pages []*model.PageRecord) []string {
	urls := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(src string) {
		if src == "" {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	}

	for _, page := range pages {
		if page.Content == nil {
			continue
		}
		for _, img := range page.Content.Images {
			add(img.Src)
		}
	}
	if len(pages) > 0 && pages[0].Content != nil && len(pages[0].Content.LogoCandidates) > 0 {
		add(pages[0].Content.LogoCandidates[0].Src)
	}
	return urls
}

// DownloadAll downloads every URL and returns the successful records in
// the order of urls, together with the number of failures. Failures are
// logged and omitted. Asset paths are unique within the result.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) ([]model.AssetRecord, int) {
	paths := assignPaths(urls)
	results := make([]*model.AssetRecord, len(urls))
	errs := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			rec, err := d.Download(gctx, u)
			if err != nil {
				errs[i] = err
				return nil
			}
			rec.Path = paths[i]
			results[i] = rec
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	records := make([]model.AssetRecord, 0, len(urls))
	failed := 0
	for i, rec := range results {
		if rec == nil {
			failed++
			d.logger.Warn("asset download failed", "url", urls[i], "error", errs[i])
			continue
		}
		records = append(records, *rec)
	}
	return records, failed
}

// Download fetches a single image.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*model.AssetRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &AssetDownloadError{URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &AssetDownloadError{URL: rawURL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &AssetDownloadError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &AssetDownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AssetDownloadError{URL: rawURL, Err: fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)}
	}
	if resp.ContentLength > d.maxSize {
		return nil, &AssetDownloadError{URL: rawURL, Err: ErrTooLarge}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, &AssetDownloadError{URL: rawURL, Err: err}
	}
	if int64(len(data)) > d.maxSize {
		return nil, &AssetDownloadError{URL: rawURL, Err: ErrTooLarge}
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &AssetDownloadError{URL: rawURL, Err: fmt.Errorf("%w: %s", ErrNotImage, contentType)}
	}

	return &model.AssetRecord{
		SourceURL:   rawURL,
		Path:        slug.AssetPath(rawURL),
		Type:        model.AssetImage,
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
		Description: exifDescription(data),
		Data:        data,
	}, nil
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// assignPaths derives the asset path of every URL. When two URLs map to
// the same path (same path on different hosts, or differing only in the
// query) the later one gets a numeric suffix before its extension.
func assignPaths(urls []string) []string {
	paths := make([]string, len(urls))
	used := make(map[string]struct{}, len(urls))
	for i, u := range urls {
		paths[i] = slug.Unique(slug.AssetPath(u), used)
	}
	return paths
}
