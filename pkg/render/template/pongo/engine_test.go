package pongo_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

//go:embed testdata/templates/*.tpl
var embedded embed.FS

func newEngine(t *testing.T, opts ...pongo.Option) *pongo.Engine {
	t.Helper()

	sub, err := fs.Sub(embedded, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := pongo.New(append([]pongo.Option{pongo.WithFS(sub)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var result string
	written := testsupport.CaptureOutput(t, func(w io.Writer) error {
		var err error
		result, err = engine.RenderTemplate("hello", map[string]any{"name": "  Ada "}, w)
		return err
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want {
		t.Fatalf("result mismatch\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("writer mismatch\nwant: %q\n got: %q", want, written)
	}
}

func TestEngine_SelectedFilter(t *testing.T) {
	engine := newEngine(t)

	data := struct {
		Options []string `json:"options"`
		Value   []string `json:"value"`
	}{
		Options: []string{"Go", "Rust", "SQL"},
		Value:   []string{"SQL", "Go"},
	}
	got, err := engine.RenderTemplate("options.tpl", data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "options.golden"))
	if got != want {
		t.Fatalf("options mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestEngine_GlobalsAndCustomFilter(t *testing.T) {
	engine := newEngine(t, pongo.WithGlobals(map[string]any{
		"site": map[string]any{"title": "Formflow"},
	}))
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) { return input, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	got, err := engine.RenderTemplate("globals", map[string]any{"label": "name"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "globals.golden"))
	if got != want {
		t.Fatalf("globals mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestEngine_RenderString(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderString("{{ title }} ({{ mode }})", map[string]any{"title": "Skills", "mode": "wizard"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "Skills (wizard)" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_Errors(t *testing.T) {
	if _, err := pongo.New(); err == nil {
		t.Fatalf("expected error without template source")
	}

	engine := newEngine(t)
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
	if _, err := engine.RenderTemplate("hello", []string{"not", "an", "object"}); err == nil {
		t.Fatalf("expected error for non-object data")
	}
}
