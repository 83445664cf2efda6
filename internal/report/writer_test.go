package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franciscod/campus-fetch/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.SyncReport {
	r := model.NewSyncReport(model.SyncRoot{ID: "42", Name: "Algoritmos I"})
	r.OutputDir = "/tmp/out/algoritmos-i"
	r.StartedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	r.PagesVisited = 4
	r.Artifacts = 3
	r.Shortcuts = 1
	r.AddFile(model.FileRecord{URL: "https://campus.test/a.pdf", Path: "general/a.pdf"})
	r.AddFile(model.FileRecord{URL: "https://campus.test/b.pdf", Path: "general/b.pdf", Reclaimed: true})
	r.AddFile(model.FileRecord{URL: "https://campus.test/c.pdf", Path: "tp/c.pdf", Reclaimed: true})
	return r
}

func createFailedReport() *model.SyncReport {
	r := model.NewSyncReport(model.SyncRoot{ID: "7", Name: "Fisica"})
	r.SetError(errors.New("failed to fetch root page: 503"))
	return r
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes course header and counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Algoritmos I (id 42)",
			"Status:     OK",
			"Downloaded:  1",
			"Reclaimed:   2",
			"Duration:   3s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "Files:") {
			t.Error("file list should only appear in verbose mode")
		}
	})

	t.Run("verbose lists files with markers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[+] general/a.pdf") {
			t.Error("expected downloaded marker")
		}
		if !strings.Contains(output, "[=] general/b.pdf") {
			t.Error("expected reclaimed marker")
		}
	})

	t.Run("writes failures and partial status", func(t *testing.T) {
		t.Parallel()

		r := createTestReport()
		r.AddFailure("https://campus.test/mod/folder/view.php?id=9", "Unidad 1", errors.New("404 Not Found"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Status:     PARTIAL") {
			t.Errorf("expected partial status\n%s", output)
		}
		if !strings.Contains(output, "Page:  Unidad 1") || !strings.Contains(output, "Error: 404 Not Found") {
			t.Errorf("expected failure details\n%s", output)
		}
	})

	t.Run("batch writes totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		reports := []*model.SyncReport{createTestReport(), createFailedReport(), nil}
		if _, err := NewSimpleWriter(&buf).WriteBatch(reports); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Status:     FAILED - failed to fetch root page: 503") {
			t.Errorf("expected failed status\n%s", output)
		}
		if !strings.Contains(output, "2 course(s), 1 failed: 1 downloaded, 2 reclaimed, 0 failure(s)") {
			t.Errorf("expected totals line\n%s", output)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.SyncReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if decoded.Root.ID != "42" || decoded.Reclaimed != 2 || len(decoded.Files) != 3 {
			t.Errorf("unexpected decoded report: %+v", decoded)
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected a single line of compact JSON")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"root\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("batch includes totals and error message", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		reports := []*model.SyncReport{createTestReport(), createFailedReport()}
		if _, err := NewJSONWriter(&buf).WriteBatch(reports); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded BatchReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(decoded.Runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(decoded.Runs))
		}
		if decoded.Runs[1].ErrorMessage == "" {
			t.Error("expected error message on failed run")
		}
		if decoded.Totals.Roots != 2 || decoded.Totals.Failed != 1 {
			t.Errorf("unexpected totals: %+v", decoded.Totals)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes table chart and tip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# campus-fetch sync report",
			"Algoritmos I",
			"```mermaid",
			"Reclaimed",
			"All courses synchronized.",
			"*Generated by campus-fetch*",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("failed course raises caution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteBatch([]*model.SyncReport{createFailedReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Errorf("expected caution alert\n%s", output)
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("chart should be omitted when no files were placed")
		}
	})

	t.Run("link failures get their own table", func(t *testing.T) {
		t.Parallel()

		r := createTestReport()
		r.AddFailure("https://campus.test/x", "Unidad 2", errors.New("timeout"))

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Failures: Algoritmos I") {
			t.Errorf("expected failure heading\n%s", output)
		}
		if !strings.Contains(output, "[!WARNING]") {
			t.Errorf("expected warning alert\n%s", output)
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := m.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, ok := New("json", &buf).(*JSONWriter); !ok {
		t.Error("expected JSONWriter for json")
	}
	if _, ok := New("md", &buf).(*MarkdownWriter); !ok {
		t.Error("expected MarkdownWriter for md")
	}
	if _, ok := New("unknown", &buf).(*SimpleWriter); !ok {
		t.Error("expected SimpleWriter fallback")
	}
}

func TestRenderPage(t *testing.T) {
	t.Parallel()

	got, err := RenderPage(Page{
		Title:  "Unidad 1",
		Source: "https://campus.test/course/view.php?id=42",
		Body:   "Bienvenidos\n",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(got, "# Unidad 1\n([fuente](https://campus.test/course/view.php?id=42))\n") {
		t.Errorf("unexpected header:\n%s", got)
	}
	if !strings.Contains(got, "\n---\n") {
		t.Errorf("expected horizontal rule:\n%s", got)
	}
	if !strings.Contains(got, "Bienvenidos") {
		t.Errorf("expected body:\n%s", got)
	}
}

func TestWritePage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "unidad-1.md")
	if err := WritePage(path, Page{Title: "Unidad 1", Source: "https://campus.test/", Body: "hola"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Unidad 1\n") {
		t.Errorf("unexpected artifact content:\n%s", data)
	}
}
