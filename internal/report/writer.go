package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitepack/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the summary of one run.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.RunSummary) (int, error)

	// WriteBatch outputs the summaries of several runs.
	WriteBatch(summaries []*model.RunSummary) (int, error)
}

// Format is an output format name.
type Format string

const (
	// FormatText is human-readable text.
	FormatText Format = "text"
	// FormatMarkdown is Markdown.
	FormatMarkdown Format = "markdown"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
)

// NewWriter returns the writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the summaries to all configured Writers.
func (m *MultiWriter) WriteBatch(summaries []*model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(summaries)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"

// statusText returns a short description of the run outcome.
func statusText(s *model.RunSummary) string {
	switch s.Status {
	case model.RunSkipped:
		return "Skipped (cache is fresh)"
	case model.RunFailed:
		return "Failed - " + s.Error
	case model.RunCompleted:
		return "Complete"
	default:
		return string(s.Status)
	}
}
