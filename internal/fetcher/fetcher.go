package fetcher

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitepack/internal/model"
)

// DefaultUserAgent identifies sitepack to the sites it crawls.
const DefaultUserAgent = "sitepack/1.0 (+https://github.com/nao1215/sitepack)"

// Result is a fetched page.
type Result struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Links are resolved against it.
	FinalURL string

	// HTML is the decoded (UTF-8) document markup.
	HTML string

	Metadata model.PageMetadata

	// Links are the absolute same-host http(s) links in document order,
	// without fragments and without duplicates.
	Links []string
}

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// Renderer loads a page in a JavaScript-capable browsing context.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*Result, error)
}

// Composite renders pages and falls back to plain HTTP when rendering fails.
type Composite struct {
	http     Fetcher
	renderer Renderer
	logger   *slog.Logger
}

// CompositeOption configures a Composite.
type CompositeOption func(*Composite)

// WithCompositeLogger sets the logger for fallback warnings.
func WithCompositeLogger(logger *slog.Logger) CompositeOption {
	return func(c *Composite) {
		c.logger = logger
	}
}

// NewComposite builds a Composite. A nil renderer makes it a pass-through
// to httpFetcher.
func NewComposite(httpFetcher Fetcher, renderer Renderer, opts ...CompositeOption) *Composite {
	c := &Composite{
		http:     httpFetcher,
		renderer: renderer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Fetcher.
func (c *Composite) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if c.renderer != nil {
		res, err := c.renderer.Render(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, &FetchError{URL: rawURL, Err: ctx.Err()}
		}
		c.logger.Warn("renderer failed, falling back to HTTP fetch", "url", rawURL, "error", err)
	}
	return c.http.Fetch(ctx, rawURL)
}
