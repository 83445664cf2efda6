package extract

import (
	"strings"
	"testing"
)

func TestToText(t *testing.T) {
	t.Parallel()

	base := "https://campus.example.org/course/view.php?id=1"

	tests := []struct {
		name     string
		fragment string
		opts     TextOptions
		want     string
	}{
		{
			name:     "paragraphs emphasis and lists",
			fragment: `<p>Hola <b>mundo</b></p><ul><li>uno</li><li>dos</li></ul>`,
			opts:     TextOptions{BulletMark: "*"},
			want:     "Hola **mundo**\n\n* uno\n* dos\n",
		},
		{
			name:     "default bullet",
			fragment: `<ul><li>uno</li></ul>`,
			want:     "- uno\n",
		},
		{
			name:     "unknown bullet falls back to the default",
			fragment: `<ul><li>uno</li></ul>`,
			opts:     TextOptions{BulletMark: "•"},
			want:     "- uno\n",
		},
		{
			name:     "ordered lists",
			fragment: `<ol><li>a</li><li>b</li></ol>`,
			want:     "1. a\n2. b\n",
		},
		{
			name:     "headings",
			fragment: `<h3>Unidad 1</h3><p>texto</p>`,
			want:     "### Unidad 1\n\ntexto\n",
		},
		{
			name:     "links resolve against base",
			fragment: `<a href="/mod/resource/view.php?id=5">Apunte</a>`,
			opts:     TextOptions{BaseURL: base},
			want:     "[Apunte](https://campus.example.org/mod/resource/view.php?id=5)\n",
		},
		{
			name:     "whitespace collapses",
			fragment: "<p>uno\n\t  dos</p>",
			want:     "uno dos\n",
		},
		{
			name:     "scripts are dropped",
			fragment: `<p>visible</p><script>alert(1)</script>`,
			want:     "visible\n",
		},
		{
			name:     "whitespace only is empty",
			fragment: `<div> <p></p><br></div>`,
			want:     "",
		},
		{
			name:     "empty fragment",
			fragment: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ToText(tt.fragment, tt.opts)
			if got != tt.want {
				t.Errorf("ToText(%q) = %q, want %q", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestToTextRelativeReferences(t *testing.T) {
	t.Parallel()

	fragment := `<p><a href="resource.php?id=5">Apunte</a> <img src="a.png" alt="diagrama"> <a href="mailto:docente@example.org">mail</a></p>`
	got := ToText(fragment, TextOptions{BaseURL: "https://campus.example.org/course/view.php?id=1"})

	for _, want := range []string{
		"(https://campus.example.org/course/resource.php?id=5)",
		"(https://campus.example.org/course/a.png)",
		"mailto:docente@example.org",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestAbsolutize(t *testing.T) {
	t.Parallel()

	got := absolutize(`<a href="/x">x</a><a href="#">top</a>`, "https://campus.example.org/course/")
	if !strings.Contains(got, `href="https://campus.example.org/x"`) {
		t.Errorf("expected absolute href: %s", got)
	}
	if !strings.Contains(got, `href="#"`) {
		t.Errorf("expected fragment-only href to stay: %s", got)
	}
}

func TestValidBulletMark(t *testing.T) {
	t.Parallel()

	for mark, want := range map[string]bool{"-": true, "+": true, "*": true, "": false, "•": false} {
		if got := ValidBulletMark(mark); got != want {
			t.Errorf("ValidBulletMark(%q) = %v, want %v", mark, got, want)
		}
	}
}
