package pipeline

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/schema"
)

// Run is the state of one pipeline invocation for a single seed URL.
// Steps read the fields filled in by earlier steps and add their own.
type Run struct {
	// ID identifies the run in logs and the summary.
	ID string

	// SeedURL is the URL the crawl starts from.
	SeedURL string

	// Domain is the host name of the seed URL, without port.
	Domain string

	// Host is the host of the seed URL including any port. Links are
	// internal when their host matches it.
	Host string

	// Options bounds the crawl and is part of the cache key.
	Options model.CrawlOptions

	// Force crawls even when the cache holds a fresh entry.
	Force bool

	// Pages is the page table produced by the crawl step.
	Pages []*model.PageRecord

	// Assets is the asset table produced by the asset step.
	Assets []model.AssetRecord

	// Document is the validated canonical document.
	Document *model.CanonicalDocument

	// Skipped is set when a step decided no further work is needed.
	Skipped bool

	// Summary collects the counters reported at the end of the run.
	Summary *model.RunSummary
}

// NewRun creates the state of a run for seed.
func NewRun(seed string, opts model.CrawlOptions, force bool) *Run {
	id := uuid.New().String()
	domain := schema.Domain(seed)

	summary := model.NewRunSummary(id, seed, opts, time.Now())
	summary.Domain = domain

	return &Run{
		ID:      id,
		SeedURL: seed,
		Domain:  domain,
		Host:    seedHost(seed),
		Options: opts,
		Force:   force,
		Pages:   make([]*model.PageRecord, 0),
		Assets:  make([]model.AssetRecord, 0),
		Summary: summary,
	}
}

func seedHost(seed string) string {
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Skip ends the run early without an error.
func (r *Run) Skip() {
	r.Skipped = true
	r.Summary.Status = model.RunSkipped
}

// finish stamps the summary with the outcome of the run.
func (r *Run) finish(err error) {
	r.Summary.FinishedAt = time.Now()
	switch {
	case err != nil:
		r.Summary.Status = model.RunFailed
		r.Summary.Error = err.Error()
	case r.Skipped:
		r.Summary.Status = model.RunSkipped
	default:
		r.Summary.Status = model.RunCompleted
	}
}
