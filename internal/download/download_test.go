package download

import (
	"context"
	"crypto/sha1" //nolint:gosec // test mirrors the origin's contenthash
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/freshness"
	"github.com/franciscod/campus-fetch/internal/snapshot"
)

func TestResolveFilename(t *testing.T) {
	t.Parallel()

	t.Run("header wins over URL and link text", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set("Content-Disposition", `attachment; filename="report.pdf"`)
		got := ResolveFilename(h, "https://campus.example.org/mod/resource/view.php?id=3", "Report", "application/pdf")
		if got != "report.pdf" {
			t.Errorf("expected report.pdf, got %q", got)
		}
	})

	t.Run("URL name wins over link text", func(t *testing.T) {
		t.Parallel()

		got := ResolveFilename(http.Header{}, "https://campus.example.org/pluginfile.php/1/mod_resource/content/2/Gu%C3%ADa%201.pdf", "Guía", "")
		if got != "Guía 1.pdf" {
			t.Errorf("expected unescaped URL name, got %q", got)
		}
	})

	t.Run("script URL falls back to link text", func(t *testing.T) {
		t.Parallel()

		got := ResolveFilename(http.Header{}, "https://campus.example.org/mod/resource/view.php?id=3", "Programa 2024", "application/pdf; charset=binary")
		if got != "programa-2024.pdf" {
			t.Errorf("expected programa-2024.pdf, got %q", got)
		}
	})

	t.Run("link text already carrying the extension", func(t *testing.T) {
		t.Parallel()

		got := ResolveFilename(nil, "https://campus.example.org/download", "notas.pdf", "application/pdf")
		if got != "notas.pdf" {
			t.Errorf("expected notas.pdf, got %q", got)
		}
	})

	t.Run("synthetic name as last resort", func(t *testing.T) {
		t.Parallel()

		got := ResolveFilename(nil, "https://campus.example.org/mod/resource/view.php?id=3", "", "application/pdf")
		if len(got) != syntheticLength+len(".pdf") || !strings.HasSuffix(got, ".pdf") {
			t.Errorf("unexpected synthetic name %q", got)
		}
	})
}

func TestDispositionName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`attachment; filename="report.pdf"`, "report.pdf"},
		{`inline; filename="tp 1.pdf"`, "tp 1.pdf"},
		{`attachment; filename*=UTF-8''apunte%20final.pdf`, "apunte final.pdf"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename=a b.pdf`, "a b.pdf"},
		{`inline`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DispositionName(tt.in); got != tt.want {
			t.Errorf("DispositionName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"a.pdf", "a.pdf"},
		{"dir/a.pdf", "a.pdf"},
		{`..\..\a.pdf`, "a.pdf"},
		{"..", ""},
		{"  ", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// fileServer serves one mutable file with its sha1 as ETag and counts GETs.
type fileServer struct {
	mu      sync.Mutex
	content string
	gets    atomic.Int32
}

func (s *fileServer) set(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
}

func (s *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	content := s.content
	s.mu.Unlock()

	sum := sha1.Sum([]byte(content)) //nolint:gosec // test helper
	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:])+`"`)
	w.Header().Set("Content-Type", "application/pdf")
	if strings.HasPrefix(r.URL.Path, "/named") {
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	}
	if r.Method == http.MethodGet {
		s.gets.Add(1)
		_, _ = io.WriteString(w, content)
	}
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // test helper
	return hex.EncodeToString(sum[:])
}

func TestHandlerDownload(t *testing.T) {
	t.Parallel()

	newEnv := func(t *testing.T) (*fileServer, *fetcher.Client, string, string) {
		t.Helper()
		files := &fileServer{content: "version 1"}
		server := httptest.NewServer(files)
		t.Cleanup(server.Close)
		client, err := fetcher.NewClient(server.URL)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		dir := t.TempDir()
		return files, client, filepath.Join(dir, "downloads", "algebra"), filepath.Join(dir, ".old", "algebra")
	}

	run := func(t *testing.T, client *fetcher.Client, live, shadow string, req Request) Result {
		t.Helper()
		snap, err := snapshot.Rotate(live, shadow)
		if err != nil {
			t.Fatalf("failed to rotate: %v", err)
		}
		h := NewHandler(client, freshness.NewChecker(client), snap)
		res, err := h.Download(context.Background(), req)
		if err != nil {
			t.Fatalf("download failed: %v", err)
		}
		if err := snap.Discard(); err != nil {
			t.Fatalf("failed to discard: %v", err)
		}
		return res
	}

	req := Request{URL: "pluginfile.php/1/apunte.pdf", DeclaredName: "apunte.pdf", Subdir: "files_unidad-1"}

	t.Run("second run reclaims unchanged files", func(t *testing.T) {
		t.Parallel()

		files, client, live, shadow := newEnv(t)

		first := run(t, client, live, shadow, req)
		if first.Reclaimed {
			t.Error("expected first run to download")
		}
		if first.Path != filepath.Join(live, "files_unidad-1", "apunte.pdf") {
			t.Errorf("unexpected path %q", first.Path)
		}

		second := run(t, client, live, shadow, req)
		if !second.Reclaimed {
			t.Error("expected second run to reclaim")
		}
		if files.gets.Load() != 1 {
			t.Errorf("expected 1 full download across both runs, got %d", files.gets.Load())
		}
		data, err := os.ReadFile(second.Path)
		if err != nil || string(data) != "version 1" {
			t.Errorf("unexpected reclaimed content %q (%v)", data, err)
		}
	})

	t.Run("changed origin is downloaded again", func(t *testing.T) {
		t.Parallel()

		files, client, live, shadow := newEnv(t)
		run(t, client, live, shadow, req)

		files.set("version 2")
		res := run(t, client, live, shadow, req)
		if res.Reclaimed {
			t.Error("expected re-download after content change")
		}
		if files.gets.Load() != 2 {
			t.Errorf("expected 2 full downloads, got %d", files.gets.Load())
		}
		digest, err := freshness.FileDigest(res.Path, nil)
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}
		if digest != sha1Hex("version 2") || res.ETag != digest {
			t.Errorf("expected live file to match new token, digest %s etag %s", digest, res.ETag)
		}
	})

	t.Run("undeclared names come from the response", func(t *testing.T) {
		t.Parallel()

		_, client, live, shadow := newEnv(t)
		res := run(t, client, live, shadow, Request{URL: "named/view.php?id=3", Subdir: "files_x", LinkText: "Report"})
		if filepath.Base(res.Path) != "report.pdf" {
			t.Errorf("expected report.pdf, got %q", res.Path)
		}
	})

	t.Run("name clashes get a suffix", func(t *testing.T) {
		t.Parallel()

		_, client, live, shadow := newEnv(t)
		snap, err := snapshot.Rotate(live, shadow)
		if err != nil {
			t.Fatalf("failed to rotate: %v", err)
		}
		h := NewHandler(client, nil, snap)

		a, err := h.Download(context.Background(), Request{URL: "named/a", Subdir: "files_x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := h.Download(context.Background(), Request{URL: "named/b", Subdir: "files_x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(a.Path) != "report.pdf" || filepath.Base(b.Path) != "report-2.pdf" {
			t.Errorf("unexpected names %q, %q", a.Path, b.Path)
		}
	})

	t.Run("failed fetch writes nothing", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)
		client, err := fetcher.NewClient(server.URL)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		live := filepath.Join(t.TempDir(), "live")
		h := NewHandler(client, nil, snapshot.None(live))

		if _, err := h.Download(context.Background(), Request{URL: "pluginfile.php/1/a.pdf", DeclaredName: "a.pdf"}); err == nil {
			t.Fatal("expected error")
		}
		if _, err := os.Stat(live); err == nil {
			t.Error("expected no live tree after failed download")
		}
	})
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	if err := WriteFile(path, []byte("hola")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hola" {
		t.Errorf("unexpected content %q (%v)", data, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}
