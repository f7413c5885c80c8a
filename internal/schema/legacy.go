package schema

import (
	"strings"
	"time"

	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/slug"
)

// BuildLegacy returns the flat legacy crawl document.
// Navigation comes from the seed page's structural navigation; when the
// seed page has none, every crawled page is listed instead.
func BuildLegacy(in CrawlResult, crawledAt time.Time) *model.LegacyDocument {
	doc := &model.LegacyDocument{
		Metadata: model.LegacyMetadata{
			Domain:      in.Domain,
			BaseURL:     in.BaseURL,
			TotalPages:  len(in.Pages),
			TotalAssets: len(in.Assets),
			CrawledAt:   crawledAt.UTC().Format(time.RFC3339),
		},
		Pages:      make([]model.PageRecord, 0, len(in.Pages)),
		Assets:     make([]model.AssetRecord, 0, len(in.Assets)),
		Navigation: make([]model.LegacyNavEntry, 0),
	}

	for _, page := range in.Pages {
		doc.Pages = append(doc.Pages, *page)
	}
	doc.Assets = append(doc.Assets, in.Assets...)

	if len(in.Pages) == 0 {
		return doc
	}

	seed := in.Pages[0]
	doc.Metadata.Title = seed.Metadata.Title
	doc.Metadata.Description = seed.Metadata.Description
	doc.Metadata.Keywords = seed.Metadata.Keywords

	paths := make(map[string]string, len(in.Pages))
	for _, page := range in.Pages {
		paths[trimURL(page.URL)] = page.Path
	}

	if seed.Content != nil {
		for _, link := range seed.Content.NavLinks {
			doc.Navigation = append(doc.Navigation, model.LegacyNavEntry{
				Text: link.Text,
				Href: link.Href,
				Path: paths[trimURL(link.Href)],
			})
		}
	}
	if len(doc.Navigation) == 0 {
		for _, page := range in.Pages {
			doc.Navigation = append(doc.Navigation, model.LegacyNavEntry{
				Text: PageTitle(page, slug.PageSlug(page.Path)),
				Href: page.URL,
				Path: page.Path,
			})
		}
	}
	return doc
}

func trimURL(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}
