package model

import "time"

// RunStatus is the outcome of one pipeline run.
type RunStatus string

const (
	// RunCompleted means a document was produced and emitted.
	RunCompleted RunStatus = "completed"

	// RunSkipped means the cache was fresh and no crawl happened.
	RunSkipped RunStatus = "skipped"

	// RunFailed means the run stopped on a fatal error.
	RunFailed RunStatus = "failed"
)

// RunSummary is the outcome of one pipeline run, written by the report
// writers.
type RunSummary struct {
	// RunID identifies the run in logs and reports.
	RunID string `json:"run_id"`

	SeedURL string       `json:"seed_url"`
	Domain  string       `json:"domain"`
	Options CrawlOptions `json:"options"`
	Status  RunStatus    `json:"status"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled is the size of the page table.
	PagesCrawled int `json:"pages_crawled"`

	// PagesFailed counts URLs whose fetch failed.
	PagesFailed int `json:"pages_failed"`

	// ExtractionFailures counts pages that fell back to empty content.
	ExtractionFailures int `json:"extraction_failures"`

	AssetsDownloaded int `json:"assets_downloaded"`
	AssetsFailed     int `json:"assets_failed"`

	// Sections counts canonical sections by type over all pages.
	Sections map[SectionType]int `json:"sections,omitempty"`

	SiteTitle string `json:"site_title,omitempty"`
	BrandSeed string `json:"brand_seed,omitempty"`

	// BrandTheme names the keyword group the brand seed came from.
	BrandTheme string `json:"brand_theme,omitempty"`

	// OutputDir is where the bundle was written, if anywhere.
	OutputDir string `json:"output_dir,omitempty"`

	// Error is the fatal error message of a failed run.
	Error string `json:"error,omitempty"`
}

// NewRunSummary creates a summary for a run starting now.
func NewRunSummary(runID, seedURL string, opts CrawlOptions, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		SeedURL:   seedURL,
		Options:   opts,
		StartedAt: startedAt,
		Sections:  make(map[SectionType]int),
	}
}

// Duration is the wall-clock time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// CountSections tallies the sections of a canonical document.
func (s *RunSummary) CountSections(doc *CanonicalDocument) {
	if s.Sections == nil {
		s.Sections = make(map[SectionType]int)
	}
	for _, page := range doc.Pages {
		for _, sec := range page.Sections {
			if sec != nil {
				s.Sections[sec.Type()]++
			}
		}
	}
}

// TotalSections is the number of sections over all pages.
func (s *RunSummary) TotalSections() int {
	total := 0
	for _, n := range s.Sections {
		total += n
	}
	return total
}

// SectionTypesPresent returns the section types with a non-zero count in
// declaration order.
func (s *RunSummary) SectionTypesPresent() []SectionType {
	out := make([]SectionType, 0, len(s.Sections))
	for _, t := range SectionTypes {
		if s.Sections[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}
