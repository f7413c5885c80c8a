package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitepack/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Sitepack Report")
	md.PlainText("")
	w.writeRun(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs an overview table followed by each run.
func (w *MarkdownWriter) WriteBatch(summaries []*model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Sitepack Batch Report")
	md.PlainText("")

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			"`" + s.SeedURL + "`",
			statusText(s),
			strconv.Itoa(s.PagesCrawled),
			strconv.Itoa(s.AssetsDownloaded),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Seed", "Status", "Pages", "Assets"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range summaries {
		md.H2(s.SeedURL)
		md.PlainText("")
		w.writeRun(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeRun(md *markdown.Markdown, s *model.RunSummary) {
	w.writeHeader(md, s)
	w.writeAlert(md, s)
	if s.Status == model.RunCompleted {
		w.writeCounts(md, s)
		w.writeSections(md, s)
	}
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	rows := [][]string{
		{"Run ID", "`" + s.RunID + "`"},
		{"Seed URL", "`" + s.SeedURL + "`"},
		{"Started", s.StartedAt.Format(timeLayout)},
		{"Duration", s.Duration().String()},
		{"Max Depth", strconv.Itoa(s.Options.MaxDepth)},
		{"Max Pages", strconv.Itoa(s.Options.MaxPages)},
		{"Status", statusText(s)},
	}
	if s.SiteTitle != "" {
		rows = append(rows, []string{"Site Title", s.SiteTitle})
	}
	if s.BrandSeed != "" {
		rows = append(rows, []string{"Brand Seed", "`" + s.BrandSeed + "`"})
	}
	if s.OutputDir != "" {
		rows = append(rows, []string{"Output", "`" + s.OutputDir + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.RunSummary) {
	switch {
	case s.Status == model.RunFailed:
		md.Cautionf("Run failed: %s", s.Error)
	case s.Status == model.RunSkipped:
		md.Note("A fresh crawl of this site is cached. Use --force to crawl again.")
	case s.PagesFailed > 0 || s.ExtractionFailures > 0 || s.AssetsFailed > 0:
		md.Warningf(
			"Completed with recoverable failures: %d page(s), %d extraction(s), %d asset(s).",
			s.PagesFailed, s.ExtractionFailures, s.AssetsFailed,
		)
	default:
		md.Tip("Completed without failures.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, s *model.RunSummary) {
	md.H3("Counts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Succeeded", "Failed"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.PagesCrawled), strconv.Itoa(s.PagesFailed)},
			{"Extraction", strconv.Itoa(s.PagesCrawled - s.ExtractionFailures), strconv.Itoa(s.ExtractionFailures)},
			{"Assets", strconv.Itoa(s.AssetsDownloaded), strconv.Itoa(s.AssetsFailed)},
		},
	})
	md.PlainText("")
}

// writeSections writes the section type distribution as a pie chart.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, s *model.RunSummary) {
	types := s.SectionTypesPresent()
	if len(types) == 0 {
		return
	}

	md.H3("Sections")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Section Types"),
		piechart.WithShowData(true),
	)
	items := make([]string, 0, len(types))
	for _, t := range types {
		n := s.Sections[t]
		chart.LabelAndIntValue(string(t), uint64(n)) //nolint:gosec // counts are never negative
		items = append(items, string(t)+": "+strconv.Itoa(n))
	}

	md.BulletList(items...)
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitepack](https://github.com/nao1215/sitepack)*")
}
