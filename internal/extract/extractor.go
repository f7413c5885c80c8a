package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitepack/internal/model"
)

// DefaultMinBlockText is the rendered text length a content block must exceed.
const DefaultMinBlockText = 50

// logoToken marks decorative images that may still serve as the site logo.
const logoToken = "logo"

var (
	// DefaultDecorativeTokens exclude an image when found in its class or alt.
	DefaultDecorativeTokens = []string{"icon", "logo", "decoration"}

	// DefaultNavigationTokens exclude a link when found in its class.
	DefaultNavigationTokens = []string{"nav", "menu", "header", "footer"}
)

// Extractor extracts content primitives from pages.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	decorativeTokens []string
	navigationTokens []string
	minBlockText     int
	markdown         *converter.Converter
	logger           *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDecorativeTokens replaces the decorative image tokens.
func WithDecorativeTokens(tokens []string) Option {
	return func(e *Extractor) {
		if len(tokens) > 0 {
			e.decorativeTokens = lowerAll(tokens)
		}
	}
}

// WithNavigationTokens replaces the navigation link tokens.
func WithNavigationTokens(tokens []string) Option {
	return func(e *Extractor) {
		if len(tokens) > 0 {
			e.navigationTokens = lowerAll(tokens)
		}
	}
}

// WithMinBlockText sets the content block text threshold.
func WithMinBlockText(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minBlockText = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		decorativeTokens: DefaultDecorativeTokens,
		navigationTokens: DefaultNavigationTokens,
		minBlockText:     DefaultMinBlockText,
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractAll attaches content to every page. A page that fails extraction
// is logged and gets an empty content set. It returns the number of
// failed pages.
func (e *Extractor) ExtractAll(pages []*model.PageRecord, domain string) int {
	failed := 0
	for _, page := range pages {
		content, err := e.Extract(page, domain)
		if err != nil {
			failed++
			e.logger.Warn("extraction failed, using empty content", "url", page.URL, "error", err)
		}
		page.Content = content
	}
	return failed
}

// Extract returns the content primitives of one page. domain is the crawl
// host used to classify links as external. On failure it returns an empty
// content set together with an *ExtractionError.
func (e *Extractor) Extract(page *model.PageRecord, domain string) (content *model.PageContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = model.NewPageContent()
			err = &ExtractionError{URL: page.URL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	pageURL, err := url.Parse(page.URL)
	if err != nil {
		return model.NewPageContent(), &ExtractionError{URL: page.URL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return model.NewPageContent(), &ExtractionError{URL: page.URL, Err: err}
	}
	doc.Find("script, style, noscript, template").Remove()

	p := &pageContext{
		extractor: e,
		base:      pageURL,
		domain:    strings.ToLower(domain),
	}

	content = model.NewPageContent()
	content.Headings = p.headings(doc)
	content.Paragraphs = p.paragraphs(doc)
	content.Images, content.LogoCandidates = p.images(doc)
	content.NavLinks = p.navLinks(doc)
	content.Links = p.links(doc)
	content.Lists = p.lists(doc)
	content.Tables = p.tables(doc)
	content.Forms = p.forms(doc)

	blocks, err := p.contentBlocks(page.HTML)
	if err != nil {
		return model.NewPageContent(), &ExtractionError{URL: page.URL, Err: err}
	}
	content.ContentBlocks = blocks

	return content, nil
}

// pageContext carries per-page state through the extraction helpers.
type pageContext struct {
	extractor *Extractor
	base      *url.URL
	domain    string
}

// resolve makes href absolute against the page URL.
// Script and fragment-only references resolve to "".
func (p *pageContext) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(u).String()
}

// isExternal reports whether the link host differs from the crawl domain.
// A domain with a port only matches links to that port; a bare domain
// matches its host name on any port. Links without a host (mailto:, tel:)
// are not external.
func (p *pageContext) isExternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false
	}
	domain := &url.URL{Host: p.domain}
	if domain.Port() == "" {
		return !strings.EqualFold(u.Hostname(), domain.Hostname())
	}
	return !strings.EqualFold(u.Host, p.domain)
}

// cleanText collapses whitespace runs and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, tokens []string) bool {
	s = strings.ToLower(s)
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
