package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/franciscod/campus-fetch/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format, for keeping a
// sync log next to the downloaded material.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary of one run.
func (w *MarkdownWriter) Write(report *model.SyncReport) (int, error) {
	return w.WriteBatch([]*model.SyncReport{report})
}

// WriteBatch outputs a summary table, the file outcome chart and one
// failure table per course that had failures.
func (w *MarkdownWriter) WriteBatch(reports []*model.SyncReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("campus-fetch sync report")
	md.PlainText("")

	totals := Sum(reports)
	w.writeSummary(md, reports)
	w.writeChart(md, totals)
	w.writeAlert(md, totals)

	for _, r := range reports {
		if r != nil && len(r.Failures) > 0 {
			w.writeFailures(md, r)
		}
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by campus-fetch*")

	return len(md.String()), md.Build()
}

// writeSummary writes one table row per course.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, reports []*model.SyncReport) {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			r.Root.Name,
			"`" + r.OutputDir + "`",
			strconv.Itoa(r.PagesVisited),
			strconv.Itoa(r.Artifacts),
			strconv.Itoa(r.Downloaded),
			strconv.Itoa(r.Reclaimed),
			strconv.Itoa(r.Shortcuts),
			strconv.Itoa(len(r.Failures)),
			status(r),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Course", "Output", "Pages", "Artifacts", "Downloaded", "Reclaimed", "Shortcuts", "Failures", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeChart writes a mermaid pie chart of downloaded versus reclaimed files.
func (w *MarkdownWriter) writeChart(md *markdown.Markdown, t Totals) {
	if t.Downloaded+t.Reclaimed == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Files"),
		piechart.WithShowData(true),
	)
	if t.Downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(t.Downloaded)) //nolint:gosec // counters are never negative
	}
	if t.Reclaimed > 0 {
		chart.LabelAndIntValue("Reclaimed", uint64(t.Reclaimed)) //nolint:gosec // counters are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, t Totals) {
	switch {
	case t.Failed > 0:
		md.Cautionf("%d course(s) could not be synchronized; their previous output was kept.", t.Failed)
	case t.Failures > 0:
		md.Warningf("%d link(s) failed. See the failure tables below.", t.Failures)
	default:
		md.Tip("All courses synchronized.")
	}
	md.PlainText("")
}

// writeFailures writes the failure table of one course.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, r *model.SyncReport) {
	md.H2("Failures: " + r.Root.Name)
	md.PlainText("")

	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, []string{f.URL, f.Page, f.Message})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Page", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}
