package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultIdleWait is how long the network must stay quiet before a
// rendered page is captured.
const DefaultIdleWait = 500 * time.Millisecond

// errRendererClosed is returned by Render after Close.
var errRendererClosed = errors.New("renderer is closed")

// RodRenderer renders pages in headless Chrome via go-rod.
// The browser is launched lazily on the first Render and every page is
// loaded in its own incognito context, which is closed before Render
// returns.
type RodRenderer struct {
	controlURL string
	timeout    time.Duration
	idleWait   time.Duration
	userAgent  string
	stealth    bool
	logger     *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// RodOption configures a RodRenderer.
type RodOption func(*RodRenderer)

// WithControlURL connects to an already running Chrome instead of
// launching one.
func WithControlURL(u string) RodOption {
	return func(r *RodRenderer) {
		r.controlURL = u
	}
}

// WithRenderTimeout sets the per-page timeout.
func WithRenderTimeout(d time.Duration) RodOption {
	return func(r *RodRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithIdleWait sets the network idle window.
func WithIdleWait(d time.Duration) RodOption {
	return func(r *RodRenderer) {
		if d > 0 {
			r.idleWait = d
		}
	}
}

// WithRenderUserAgent overrides the browser user agent.
func WithRenderUserAgent(ua string) RodOption {
	return func(r *RodRenderer) {
		r.userAgent = ua
	}
}

// WithStealth toggles go-rod/stealth page creation.
func WithStealth(enabled bool) RodOption {
	return func(r *RodRenderer) {
		r.stealth = enabled
	}
}

// WithRenderLogger sets the logger.
func WithRenderLogger(logger *slog.Logger) RodOption {
	return func(r *RodRenderer) {
		r.logger = logger
	}
}

// NewRodRenderer creates a renderer. No browser is started until the
// first call to Render.
func NewRodRenderer(opts ...RodOption) *RodRenderer {
	r := &RodRenderer{
		timeout:  DefaultTimeout,
		idleWait: DefaultIdleWait,
		stealth:  true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render loads rawURL, waits for network idleness and returns the DOM.
func (r *RodRenderer) Render(ctx context.Context, rawURL string) (*Result, error) {
	b, err := r.ensureBrowser()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	incognito, err := b.Incognito()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("create browsing context: %w", err)}
	}
	defer func() { _ = incognito.Close() }()

	var page *rod.Page
	if r.stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("create page: %w", err)}
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)
	if r.userAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			r.logger.Debug("failed to override user agent", "url", rawURL, "error", err)
		}
	}

	start := time.Now()
	waitIdle := p.WaitRequestIdle(r.idleWait, nil, nil, nil)
	if err := p.Navigate(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := p.WaitLoad(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("wait load: %w", err)}
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	doc, err := p.HTML()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read DOM: %w", err)}
	}

	finalURL := rawURL
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	parser, err := NewParser(finalURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	parsed, err := parser.Parse(doc)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse: %w", err)}
	}

	r.logger.Debug("rendered page",
		"url", rawURL,
		"final_url", finalURL,
		"latency_ms", time.Since(start).Milliseconds(),
		"html_bytes", len(doc),
	)

	return &Result{
		URL:      rawURL,
		FinalURL: finalURL,
		HTML:     doc,
		Metadata: parsed.Metadata,
		Links:    parsed.Links,
	}, nil
}

// Close shuts down the browser and any launched Chrome process.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}

func (r *RodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRendererClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.controlURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.logger.Info("launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if r.lnch != nil {
			r.lnch.Cleanup()
			r.lnch = nil
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	r.browser = b
	return b, nil
}
