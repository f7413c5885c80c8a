package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitepack/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-type section breakdown.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder
	w.writeRun(&sb, summary)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs every summary followed by a totals line.
func (w *SimpleWriter) WriteBatch(summaries []*model.RunSummary) (int, error) {
	var sb strings.Builder
	completed, skipped, failed := 0, 0, 0
	for _, s := range summaries {
		w.writeRun(&sb, s)
		switch s.Status {
		case model.RunCompleted:
			completed++
		case model.RunSkipped:
			skipped++
		case model.RunFailed:
			failed++
		}
	}
	sb.WriteString(fmt.Sprintf("Sites: %d completed, %d skipped, %d failed\n", completed, skipped, failed))
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeRun(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SITEPACK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seed URL:       %s\n", s.SeedURL))
	sb.WriteString(fmt.Sprintf("Run ID:         %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", s.StartedAt.Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", s.Duration()))
	sb.WriteString(fmt.Sprintf("Status:         %s\n", statusText(s)))
	sb.WriteString("\n")

	if s.Status != model.RunCompleted {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  PAGES:      %d (%d failed)\n", s.PagesCrawled, s.PagesFailed))
	sb.WriteString(fmt.Sprintf("  EXTRACTION: %d failed\n", s.ExtractionFailures))
	sb.WriteString(fmt.Sprintf("  ASSETS:     %d (%d failed)\n", s.AssetsDownloaded, s.AssetsFailed))
	sb.WriteString(fmt.Sprintf("  SECTIONS:   %d\n", s.TotalSections()))
	if s.SiteTitle != "" {
		sb.WriteString(fmt.Sprintf("  TITLE:      %s\n", s.SiteTitle))
	}
	if s.BrandSeed != "" {
		brand := s.BrandSeed
		if s.BrandTheme != "" {
			brand += " (" + s.BrandTheme + ")"
		}
		sb.WriteString(fmt.Sprintf("  BRAND:      %s\n", brand))
	}
	if s.OutputDir != "" {
		sb.WriteString(fmt.Sprintf("  OUTPUT:     %s\n", s.OutputDir))
	}
	sb.WriteString("\n")

	if w.verbose {
		for _, t := range s.SectionTypesPresent() {
			sb.WriteString(fmt.Sprintf("  [+] %-10s %d\n", t, s.Sections[t]))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitepack\n")
	sb.WriteString("https://github.com/nao1215/sitepack\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
