package bundle

import (
	"context"
	"time"

	"github.com/nao1215/sitepack/internal/model"
)

// Bundle is everything a crawl run produces.
type Bundle struct {
	// Document is the canonical document. It must pass schema validation.
	Document *model.CanonicalDocument

	// Pages is the raw page table with extracted content attached.
	Pages []*model.PageRecord

	// Assets is the downloaded asset table.
	Assets []model.AssetRecord

	// SeedURL is the URL the crawl started from.
	SeedURL string

	// Domain is the crawled host.
	Domain string

	// CrawledAt is when the crawl finished.
	CrawledAt time.Time
}

// Emitter accepts finished bundles.
type Emitter interface {
	// Emit delivers the bundle. It returns an error without delivering
	// anything when the bundle's document is invalid.
	Emit(ctx context.Context, b *Bundle) error
}
