package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/franciscod/campus-fetch/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every file placed in the live tree.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with one line per file.
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

// Write outputs the summary of one run.
func (w *SimpleWriter) Write(report *model.SyncReport) (int, error) {
	var sb strings.Builder
	w.writeRun(&sb, report)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs every run and the totals.
func (w *SimpleWriter) WriteBatch(reports []*model.SyncReport) (int, error) {
	var sb strings.Builder
	for _, r := range reports {
		if r != nil {
			w.writeRun(&sb, r)
		}
	}
	w.writeTotals(&sb, Sum(reports))
	return w.output.Write([]byte(sb.String()))
}

// writeRun writes the block of one course.
func (w *SimpleWriter) writeRun(sb *strings.Builder, r *model.SyncReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%s (id %s)\n", r.Root.Name, r.Root.ID)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Output:     %s\n", r.OutputDir)
	fmt.Fprintf(sb, "Started:    %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", r.Duration().Round(1e6))
	if r.Failed() {
		fmt.Fprintf(sb, "Status:     FAILED - %s\n", r.ErrorMessage)
	} else {
		fmt.Fprintf(sb, "Status:     %s\n", status(r))
	}
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Pages:       %d\n", r.PagesVisited)
	fmt.Fprintf(sb, "  Artifacts:   %d\n", r.Artifacts)
	fmt.Fprintf(sb, "  Downloaded:  %d\n", r.Downloaded)
	fmt.Fprintf(sb, "  Reclaimed:   %d\n", r.Reclaimed)
	fmt.Fprintf(sb, "  Shortcuts:   %d\n", r.Shortcuts)
	fmt.Fprintf(sb, "  Unhandled:   %d\n", r.Unhandled)
	fmt.Fprintf(sb, "  Duplicates:  %d\n", r.Duplicates)
	sb.WriteString("\n")

	if w.verbose && len(r.Files) > 0 {
		sb.WriteString("Files:\n")
		for _, f := range r.Files {
			marker := "+"
			if f.Reclaimed {
				marker = "="
			}
			fmt.Fprintf(sb, "  [%s] %s\n", marker, f.Path)
		}
		sb.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		sb.WriteString("Failures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(sb, "  * %s\n", f.URL)
			if f.Page != "" {
				fmt.Fprintf(sb, "    Page:  %s\n", f.Page)
			}
			fmt.Fprintf(sb, "    Error: %s\n", f.Message)
		}
		sb.WriteString("\n")
	}
}

// writeTotals writes the batch footer.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, t Totals) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%d course(s), %d failed: %d downloaded, %d reclaimed, %d failure(s)\n",
		t.Roots, t.Failed, t.Downloaded, t.Reclaimed, t.Failures)
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
}
