package page

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/tag"
	"github.com/vango-dev/appcore/pkg/view"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		line    string
		ok      bool
		flags   map[string]bool
		unknown []string
	}{
		{"<!-- +navbar, -footer -->", true, map[string]bool{"navbar": true, "footer": false}, nil},
		{"  <!--  +wide  -->  ", true, map[string]bool{"wide": true}, nil},
		{"<!-- +navbar, sidebar -->", true, map[string]bool{"navbar": true}, []string{"sidebar"}},
		{"<!-- +a,-b,+c -->\r", true, map[string]bool{"a": true, "b": false, "c": true}, nil},
		{"<!-- +, -footer -->", true, map[string]bool{"": true, "footer": false}, nil},
		{"<!-- - -->", true, map[string]bool{"": false}, nil},
		{"<!--+navbar-->", false, nil, nil},
		{"<div>", false, nil, nil},
		{"<!-- <b> -->", false, nil, nil},
		{"", false, nil, nil},
	}

	for _, tt := range tests {
		d, ok := ParseDirectives(tt.line)
		if ok != tt.ok {
			t.Errorf("ParseDirectives(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if len(d.Flags) != len(tt.flags) {
			t.Errorf("ParseDirectives(%q) flags = %v, want %v", tt.line, d.Flags, tt.flags)
		}
		for k, v := range tt.flags {
			if got, ok := d.Flags[k]; !ok || got != v {
				t.Errorf("ParseDirectives(%q) flag %s = %v, want %v", tt.line, k, got, v)
			}
		}
		if strings.Join(d.Unknown, ",") != strings.Join(tt.unknown, ",") {
			t.Errorf("ParseDirectives(%q) unknown = %v, want %v", tt.line, d.Unknown, tt.unknown)
		}
	}
}

func TestTemplateNameAndMinimal(t *testing.T) {
	if got := TemplateName("users"); got != "dynamic/users.html" {
		t.Errorf("TemplateName = %q", got)
	}

	m := Minimal("hello")
	if m[KeyResult] != "hello" || m[KeyContent] != "hello" {
		t.Errorf("Minimal = %v", m)
	}
	if !m.Flag(KeyNavbar, false) {
		t.Error("Minimal should enable the navbar")
	}
	if m.Embedded() {
		t.Error("Minimal should not be embedded")
	}
}

func newBuilder(files fstest.MapFS, logger *slog.Logger) *Builder {
	return NewBuilder(resource.NewFSLoader(files), view.NewHTMLEngine(), logger)
}

func TestBuildAppliesDirectives(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	b := newBuilder(fstest.MapFS{
		"dynamic/users.html": {Data: []byte("<!-- +navbar, -footer, wide -->\n<div>{{result}}</div>")},
	}, logger)

	m, err := b.Build(context.Background(), "dynamic/users.html", "alice")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m[KeyNavbar] != true || m[KeyFooter] != false {
		t.Errorf("flags = navbar:%v footer:%v", m[KeyNavbar], m[KeyFooter])
	}
	if _, ok := m["wide"]; ok {
		t.Error("unknown directive should not become a flag")
	}
	if got := m[KeyContent]; got != template.HTML("<div>alice</div>") {
		t.Errorf("content = %q", got)
	}
	if m[KeyResult] != "alice" {
		t.Errorf("result = %v", m[KeyResult])
	}

	out := logs.String()
	if !strings.Contains(out, "unknown directive") || !strings.Contains(out, "directive=wide") || !strings.Contains(out, "file=dynamic/users.html") {
		t.Errorf("warning not logged: %q", out)
	}
}

func TestBuildWithoutDirectives(t *testing.T) {
	b := newBuilder(fstest.MapFS{
		"dynamic/a.html": {Data: []byte("<h1>{{.result}}</h1>\n<p>two</p>")},
		"dynamic/b.html": {Data: []byte("<!-- +navbar -->")},
	}, nil)

	m, err := b.Build(context.Background(), "dynamic/a.html", "x")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := m[KeyContent]; got != template.HTML("<h1>x</h1>\n<p>two</p>") {
		t.Errorf("content = %q", got)
	}
	if _, ok := m[KeyNavbar]; ok {
		t.Error("no directive line, no navbar flag")
	}

	// A single line template is content, not a directive line.
	m, err = b.Build(context.Background(), "dynamic/b.html", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := m[KeyContent]; got != template.HTML("<!-- +navbar -->") && got != template.HTML("") {
		t.Errorf("content = %q", got)
	}
	if _, ok := m[KeyNavbar]; ok {
		t.Error("single line template should not set flags")
	}
}

func TestBuildErrors(t *testing.T) {
	b := newBuilder(fstest.MapFS{
		"dynamic/bad.html": {Data: []byte("{{if}}")},
	}, nil)

	if _, err := b.Build(context.Background(), "dynamic/missing.html", nil); err == nil {
		t.Error("missing template should fail")
	}
	if _, err := b.Build(context.Background(), "dynamic/bad.html", nil); err == nil {
		t.Error("broken template should fail")
	}
	if !b.Exists(context.Background(), "dynamic/bad.html") || b.Exists(context.Background(), "dynamic/missing.html") {
		t.Error("Exists mismatch")
	}
}

func TestLayoutEmbedded(t *testing.T) {
	l := &Layout{}
	model := Model{KeyContent: template.HTML("<p>x</p>"), KeyEmbedded: true}

	got, err := l.Render(context.Background(), model, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "<p>x</p>" {
		t.Errorf("Render = %q", got)
	}
}

func TestLayoutBuiltin(t *testing.T) {
	l := &Layout{Title: "App"}

	got, err := l.Render(context.Background(), Minimal("a < b"), "a < b")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"<!DOCTYPE html>", "<title>App</title>", "<nav>", "<main>a &lt; b</main>", "<footer></footer>"} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q:\n%s", want, got)
		}
	}

	got, err = l.Render(context.Background(), Model{
		KeyContent: tag.P("hi"),
		KeyNavbar:  false,
		KeyFooter:  false,
		KeyTitle:   "Custom",
	}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(got, "<nav>") || strings.Contains(got, "<footer>") {
		t.Errorf("navbar and footer should be off:\n%s", got)
	}
	if !strings.Contains(got, "<title>Custom</title>") || !strings.Contains(got, "<main><p>hi</p></main>") {
		t.Errorf("unexpected page:\n%s", got)
	}
}

func TestLayoutTemplate(t *testing.T) {
	l := &Layout{
		Resources: resource.NewFSLoader(fstest.MapFS{
			LayoutTemplate: {Data: []byte(`<html>{{if .navbar}}<nav></nav>{{end}}<main>{{.content}}</main></html>`)},
		}),
		Engine: view.NewHTMLEngine(),
	}

	got, err := l.Render(context.Background(), Model{KeyContent: template.HTML("<b>x</b>"), KeyNavbar: true}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "<html><nav></nav><main><b>x</b></main></html>" {
		t.Errorf("Render = %q", got)
	}
}
