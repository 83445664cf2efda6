package dispatch

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/franciscod/campus-fetch/internal/model"
)

func testClassifier(t *testing.T) Classifier {
	t.Helper()
	base, err := url.Parse("https://campus.example.org/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}
	return Classifier{Base: base, RootID: "42"}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := testClassifier(t)

	tests := []struct {
		url  string
		want model.ResourceKind
	}{
		{"https://campus.example.org/pluginfile.php/12/mod_resource/content/1/tp1.pdf", model.KindFile},
		{"https://campus.example.org/mod/resource/view.php?id=7", model.KindResource},
		{"https://campus.example.org/mod/url/view.php?id=8", model.KindShortcut},
		{"https://campus.example.org/mod/folder/view.php?id=9", model.KindFolder},
		{"https://campus.example.org/mod/forum/discuss.php?d=3", model.KindDiscussion},
		{"https://campus.example.org/mod/forum/view.php?id=2", model.KindForum},
		{"https://campus.example.org/mod/page/view.php?id=5", model.KindPage},
		{"https://campus.example.org/course/view.php?id=42&section=3", model.KindSubPage},
		{"https://campus.example.org/course/view.php?id=43", model.KindUnhandled},
		{"https://campus.example.org/user/profile.php?id=1", model.KindUnhandled},
		{"https://www.youtube.com/watch?v=abc", model.KindUnhandled},
		{"https://other.example.org/pluginfile.php/1/a.pdf", model.KindUnhandled},
		{"ftp://campus.example.org/pluginfile.php/1/a.pdf", model.KindUnhandled},
		{"::not a url", model.KindUnhandled},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestClassifyNilBaseAcceptsAnyHost(t *testing.T) {
	t.Parallel()

	c := Classifier{RootID: "1"}
	if got := c.Classify("https://mirror.example.net/pluginfile.php/1/a.pdf"); got != model.KindFile {
		t.Errorf("expected file, got %s", got)
	}
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	t.Run("routes by kind", func(t *testing.T) {
		t.Parallel()

		var got []model.ResourceKind
		record := func(_ context.Context, req Request) error {
			got = append(got, req.Link.Kind)
			return nil
		}
		d := New(testClassifier(t), model.NewVisitSet(), Table{
			model.KindFile:     record,
			model.KindResource: record,
		})

		links := []string{
			"https://campus.example.org/mod/resource/view.php?id=1",
			"https://campus.example.org/pluginfile.php/1/a.pdf",
		}
		for _, link := range links {
			if err := d.Dispatch(context.Background(), Request{Link: model.ResourceLink{URL: link}}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if len(got) != 2 || got[0] != model.KindResource || got[1] != model.KindFile {
			t.Errorf("unexpected routing %v", got)
		}
	})

	t.Run("dispatches a key only once", func(t *testing.T) {
		t.Parallel()

		calls := 0
		d := New(testClassifier(t), model.NewVisitSet(), Table{
			model.KindFile: func(context.Context, Request) error {
				calls++
				return nil
			},
		})

		for _, link := range []string{
			"https://campus.example.org/pluginfile.php/1/a.pdf",
			"https://campus.example.org/pluginfile.php/1/a.pdf#page=2",
			"https://CAMPUS.example.org/pluginfile.php/1/a.pdf",
		} {
			if err := d.Dispatch(context.Background(), Request{Link: model.ResourceLink{URL: link}}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if calls != 1 {
			t.Errorf("expected 1 handler call, got %d", calls)
		}
		if d.Duplicates() != 2 {
			t.Errorf("expected 2 duplicates, got %d", d.Duplicates())
		}
	})

	t.Run("sub-page shares key with visited pages", func(t *testing.T) {
		t.Parallel()

		visited := model.NewVisitSet()
		tab := "https://campus.example.org/course/view.php?id=42&section=1"
		visited.Add(model.PageKey(tab))

		calls := 0
		d := New(testClassifier(t), visited, Table{
			model.KindSubPage: func(context.Context, Request) error {
				calls++
				return nil
			},
		})

		if err := d.Dispatch(context.Background(), Request{Link: model.ResourceLink{URL: tab}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 0 {
			t.Errorf("expected visited tab not to be dispatched, got %d calls", calls)
		}
	})

	t.Run("unhandled kinds are skipped", func(t *testing.T) {
		t.Parallel()

		d := New(testClassifier(t), model.NewVisitSet(), Table{})

		links := []string{
			"https://www.youtube.com/watch?v=abc",
			"https://campus.example.org/mod/forum/view.php?id=2",
		}
		for _, link := range links {
			if err := d.Dispatch(context.Background(), Request{Link: model.ResourceLink{URL: link, Text: "x"}}); err != nil {
				t.Fatalf("expected unhandled link to be skipped, got %v", err)
			}
		}
		if d.Unhandled() != 2 {
			t.Errorf("expected 2 unhandled, got %d", d.Unhandled())
		}
	})

	t.Run("declared kind is kept", func(t *testing.T) {
		t.Parallel()

		var kind model.ResourceKind
		d := New(testClassifier(t), model.NewVisitSet(), Table{
			model.KindFile: func(_ context.Context, req Request) error {
				kind = req.Link.Kind
				return nil
			},
		})

		link := model.ResourceLink{URL: "https://campus.example.org/draftfile.php/1/a.pdf", Kind: model.KindFile}
		if err := d.Dispatch(context.Background(), Request{Link: link}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if kind != model.KindFile {
			t.Errorf("expected declared file kind, got %s", kind)
		}
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		d := New(testClassifier(t), model.NewVisitSet(), Table{
			model.KindFile: func(context.Context, Request) error { return boom },
		})

		err := d.Dispatch(context.Background(), Request{Link: model.ResourceLink{URL: "https://campus.example.org/pluginfile.php/1/a.pdf"}})
		if !errors.Is(err, boom) {
			t.Errorf("expected handler error, got %v", err)
		}
	})
}
