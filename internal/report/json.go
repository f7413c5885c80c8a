package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitepack/internal/model"
)

// JSONWriter outputs summaries in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// summaryJSON adds derived fields to the serialized summary.
type summaryJSON struct {
	*model.RunSummary

	DurationMS    int64 `json:"duration_ms"`
	TotalSections int   `json:"total_sections"`
}

// Write outputs one summary in JSON format.
func (w *JSONWriter) Write(summary *model.RunSummary) (int, error) {
	return w.writeJSON(wrap(summary))
}

// WriteBatch outputs the summaries as a JSON array.
func (w *JSONWriter) WriteBatch(summaries []*model.RunSummary) (int, error) {
	out := make([]summaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, wrap(s))
	}
	return w.writeJSON(out)
}

func wrap(s *model.RunSummary) summaryJSON {
	return summaryJSON{
		RunSummary:    s,
		DurationMS:    s.Duration().Milliseconds(),
		TotalSections: s.TotalSections(),
	}
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
