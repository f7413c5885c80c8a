package schema

import (
	"html"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/slug"
)

// CrawlResult is the raw material of a canonical document.
type CrawlResult struct {
	// Domain is the crawled host.
	Domain string

	// BaseURL is the seed URL.
	BaseURL string

	// Pages are the crawled pages with content attached, seed first.
	Pages []*model.PageRecord

	// Assets are the downloaded images.
	Assets []model.AssetRecord
}

// Normalizer converts crawl results into canonical documents.
type Normalizer struct {
	policy      *bluemonday.Policy
	localAssets bool
	logger      *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocalAssets controls whether image sources are rewritten to the
// path of their downloaded asset. Enabled by default.
func WithLocalAssets(enabled bool) Option {
	return func(n *Normalizer) {
		n.localAssets = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		policy:      bluemonday.UGCPolicy(),
		localAssets: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds the canonical document of a crawl result.
// The result is not validated; call Validate before emitting it.
func (n *Normalizer) Normalize(in CrawlResult) *model.CanonicalDocument {
	imageSrc := n.imageResolver(in.Assets)

	doc := &model.CanonicalDocument{
		Version: model.SchemaVersion,
		Nav:     make([]model.NavItem, 0, len(in.Pages)),
		Pages:   make([]model.CanonicalPage, 0, len(in.Pages)),
	}

	used := make(map[string]struct{}, len(in.Pages))
	for _, page := range in.Pages {
		cp := n.normalizePage(page, imageSrc)
		cp.Slug = uniqueSlug(cp.Slug, used)
		doc.Pages = append(doc.Pages, cp)
		doc.Nav = append(doc.Nav, model.NavItem{Title: NavTitle(cp.Slug), Slug: cp.Slug})
	}

	doc.Site = n.siteInfo(in, imageSrc)
	n.logger.Debug("normalized document",
		"domain", in.Domain,
		"pages", len(doc.Pages),
		"brand_seed", doc.Site.BrandSeed)
	return doc
}

func (n *Normalizer) siteInfo(in CrawlResult, imageSrc func(string) string) model.SiteInfo {
	site := model.SiteInfo{}
	if len(in.Pages) > 0 {
		seed := in.Pages[0]
		site.Title = firstNonEmpty(seed.Metadata.Title, seed.Metadata.OGTitle)
		site.Description = firstNonEmpty(seed.Metadata.Description, seed.Metadata.OGDescription)
		if seed.Content != nil && len(seed.Content.LogoCandidates) > 0 {
			site.Logo = imageSrc(seed.Content.LogoCandidates[0].Src)
		}
	}
	if site.Title == "" {
		site.Title = in.Domain
	}
	site.BrandSeed = BrandSeed(in.Domain, site.Title, site.Description)
	return site
}

// normalizePage emits the sections of one page in a fixed order:
// lead heading (and hero image), description, headings, paragraphs,
// gallery or standalone image, buttons, lists, tables.
func (n *Normalizer) normalizePage(page *model.PageRecord, imageSrc func(string) string) model.CanonicalPage {
	content := page.Content
	if content == nil {
		content = model.NewPageContent()
	}

	pageSlug := slug.PageSlug(page.Path)
	title := PageTitle(page, pageSlug)
	description := strings.TrimSpace(page.Metadata.Description)

	images := make([]string, 0, len(content.Images))
	for _, img := range content.Images {
		images = append(images, imageSrc(img.Src))
	}

	sections := make([]model.Section, 0)
	imageEmitted := false

	sections = append(sections, model.HeadingSection{Level: 1, Text: title})
	if len(images) > 0 {
		first := content.Images[0]
		sections = append(sections, model.ImageSection{Src: images[0], Alt: first.Alt, Caption: first.Caption})
		imageEmitted = true
	}

	if description != "" {
		sections = append(sections, model.ParagraphSection{Text: description})
	}

	for _, h := range content.Headings {
		sections = append(sections, model.HeadingSection{Level: h.Level, Text: h.Text})
	}

	for _, p := range content.Paragraphs {
		if strings.TrimSpace(p) != "" {
			sections = append(sections, model.ParagraphSection{Text: p})
		}
	}

	switch {
	case len(images) > 1:
		sections = append(sections, model.GallerySection{Items: images})
	case len(images) == 1 && !imageEmitted:
		first := content.Images[0]
		sections = append(sections, model.ImageSection{Src: images[0], Alt: first.Alt, Caption: first.Caption})
	}

	for _, l := range content.Links {
		if l.Href != "" && l.Text != "" {
			sections = append(sections, model.ButtonSection{Text: l.Text, Href: l.Href})
		}
	}

	for _, l := range content.Lists {
		if len(l.Items) > 0 {
			sections = append(sections, model.ListSection{Items: l.Items})
		}
	}

	for _, t := range content.Tables {
		if len(t.Rows) > 0 {
			sections = append(sections, model.HTMLSection{Raw: n.policy.Sanitize(renderTable(t))})
		}
	}

	cp := model.CanonicalPage{
		Slug:     pageSlug,
		Title:    title,
		Sections: sections,
	}
	if len(images) > 0 {
		subtitle := description
		if subtitle == "" {
			subtitle = blockLead(content.ContentBlocks)
		}
		cp.Hero = &model.Hero{Title: title, Subtitle: subtitle, Image: images[0]}
	}
	return cp
}

// maxLeadRunes bounds a hero subtitle taken from a content block.
const maxLeadRunes = 160

// blockLead returns the opening of the first content block: its first
// sentence when that fits in maxLeadRunes, otherwise whole words up to
// the limit followed by "...".
func blockLead(blocks []model.ContentBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(blocks[0].Text), " ")

	if i := strings.Index(text, ". "); i >= 0 && utf8.RuneCountInString(text[:i+1]) <= maxLeadRunes {
		return text[:i+1]
	}
	if utf8.RuneCountInString(text) <= maxLeadRunes {
		return text
	}

	var b strings.Builder
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(word)+1 > maxLeadRunes-3 {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() == 0 {
		return string([]rune(text)[:maxLeadRunes-3]) + "..."
	}
	return b.String() + "..."
}

// imageResolver maps an image source URL to the path of its downloaded
// asset, falling back to the source URL.
func (n *Normalizer) imageResolver(assets []model.AssetRecord) func(string) string {
	local := make(map[string]string, len(assets))
	if n.localAssets {
		for _, a := range assets {
			local[a.SourceURL] = a.Path
		}
	}
	return func(src string) string {
		if p, ok := local[src]; ok {
			return p
		}
		return src
	}
}

// PageTitle returns the metadata title of a page, falling back to its
// first h1 and then to the title-cased slug.
func PageTitle(page *model.PageRecord, pageSlug string) string {
	if t := strings.TrimSpace(page.Metadata.Title); t != "" {
		return t
	}
	if page.Content != nil {
		for _, h := range page.Content.Headings {
			if h.Level == 1 && h.Text != "" {
				return h.Text
			}
		}
	}
	return NavTitle(pageSlug)
}

// NavTitle derives a display title from a page slug:
// "index" is "Home", "events/summer-fest" is "Summer Fest".
func NavTitle(pageSlug string) string {
	parts := strings.Split(strings.Trim(pageSlug, "/"), "/")
	base := parts[len(parts)-1]
	if base == "index" && len(parts) > 1 {
		base = parts[len(parts)-2]
	}
	if base == "index" || base == "" {
		return "Home"
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(words) == 0 {
		return "Home"
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func uniqueSlug(s string, used map[string]struct{}) string {
	candidate := s
	for i := 2; ; i++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = s + "-" + strconv.Itoa(i)
	}
}

func renderTable(t model.Table) string {
	var b strings.Builder
	b.WriteString("<table>")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// Domain returns the lowercased host of rawURL.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
