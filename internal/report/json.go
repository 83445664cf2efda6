package report

import (
	"encoding/json"
	"io"

	"github.com/franciscod/campus-fetch/internal/model"
)

// JSONWriter outputs run summaries in JSON format for tool integration.
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

// BatchReport is the JSON document written for several runs.
type BatchReport struct {
	Runs   []*model.SyncReport `json:"runs"`
	Totals Totals              `json:"totals"`
}

// Write outputs one run as a JSON object.
func (w *JSONWriter) Write(report *model.SyncReport) (int, error) {
	return w.writeJSON(report)
}

// WriteBatch outputs every run and the totals as one JSON object.
func (w *JSONWriter) WriteBatch(reports []*model.SyncReport) (int, error) {
	runs := make([]*model.SyncReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			runs = append(runs, r)
		}
	}
	return w.writeJSON(BatchReport{Runs: runs, Totals: Sum(runs)})
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
