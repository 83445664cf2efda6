package report

import (
	"io"

	"github.com/franciscod/campus-fetch/internal/model"
)

// Writer defines the interface for run summary output.
// Implementations write sync results in various formats.
type Writer interface {
	// Write outputs the summary of one run.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.SyncReport) (int, error)

	// WriteBatch outputs the summaries of several runs, one per root,
	// followed by totals.
	WriteBatch(reports []*model.SyncReport) (int, error)
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

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.SyncReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the reports to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.SyncReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// New returns the writer for format: "text", "markdown" or "json".
// Unknown formats fall back to text.
func New(format string, output io.Writer) Writer {
	switch format {
	case "markdown", "md":
		return NewMarkdownWriter(output)
	case "json":
		return NewJSONWriter(output, WithPrettyPrint())
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Totals aggregates the counters of several runs.
type Totals struct {
	Roots      int `json:"roots"`
	Failed     int `json:"failed"`
	Pages      int `json:"pages"`
	Artifacts  int `json:"artifacts"`
	Downloaded int `json:"downloaded"`
	Reclaimed  int `json:"reclaimed"`
	Shortcuts  int `json:"shortcuts"`
	Unhandled  int `json:"unhandled"`
	Failures   int `json:"failures"`
}

// Sum totals reports. Nil entries are skipped.
func Sum(reports []*model.SyncReport) Totals {
	var t Totals
	for _, r := range reports {
		if r == nil {
			continue
		}
		t.Roots++
		if r.Failed() {
			t.Failed++
		}
		t.Pages += r.PagesVisited
		t.Artifacts += r.Artifacts
		t.Downloaded += r.Downloaded
		t.Reclaimed += r.Reclaimed
		t.Shortcuts += r.Shortcuts
		t.Unhandled += r.Unhandled
		t.Failures += len(r.Failures)
	}
	return t
}

// status returns the one-word outcome of a run.
func status(r *model.SyncReport) string {
	switch {
	case r.Failed():
		return "FAILED"
	case len(r.Failures) > 0:
		return "PARTIAL"
	default:
		return "OK"
	}
}
