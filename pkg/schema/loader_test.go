package schema_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const signupDoc = `
forms:
  signup:
    title: Sign up
    mode: wizard
    parts: [who, secret]
parts:
  who:
    title: Who
    fields:
      - name: name
        type: string
        required: true
        rules:
          - { kind: minLength, value: "2", message: too short }
      - name: plan
        type: enum
        options: [free, paid]
        default: free
      - name: seats
        type: number
        default: 3
`

const secretDoc = `{
  "parts": {
    "secret": {
      "title": "Secret",
      "fields": [
        {"name": "password", "type": "string"},
        {"name": "confirm", "type": "string"}
      ],
      "refinements": [
        {"kind": "matches", "path": "confirm", "field": "password", "message": "mismatch"}
      ]
    }
  }
}`

func TestLoadFS_ResolvesPartsAcrossFiles(t *testing.T) {
	registry, err := schema.LoadFS(fstest.MapFS{
		"forms/signup.yaml": {Data: []byte(signupDoc)},
		"parts/secret.json": {Data: []byte(secretDoc)},
		"README.md":         {Data: []byte("ignored")},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if diff := cmp.Diff([]string{"signup"}, registry.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	form, ok := registry.Form("signup")
	if !ok {
		t.Fatalf("signup form not registered")
	}
	if form.Mode != schema.ModeWizard {
		t.Fatalf("mode mismatch: %s", form.Mode)
	}
	if len(form.Parts) != 2 || form.Parts[1].Title != "Secret" {
		t.Fatalf("parts not resolved in order: %#v", form.Parts)
	}

	got := form.Schema().FieldNames()
	want := []string{"name", "plan", "seats", "password", "confirm"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	defaults := form.Schema().Defaults()
	wantDefaults := model.Record{
		"name":     "",
		"plan":     "free",
		"seats":    float64(3),
		"password": "",
		"confirm":  "",
	}
	if diff := cmp.Diff(wantDefaults, defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	refs := form.Schema().Refinements
	if len(refs) != 1 {
		t.Fatalf("expected one refinement, got %d", len(refs))
	}
	if refs[0].Passes(model.Record{"password": "a", "confirm": "b"}) {
		t.Fatalf("matches refinement should fail on mismatch")
	}
}

func TestLoadFS_Errors(t *testing.T) {
	cases := map[string]struct {
		files fstest.MapFS
		want  string
	}{
		"unknown part": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  f:\n    parts: [missing]\n")}},
			want:  `unknown part "missing"`,
		},
		"unknown type": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("parts:\n  p:\n    fields:\n      - {name: x, type: blob}\n")}},
			want:  `unknown type "blob"`,
		},
		"bad pattern": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("parts:\n  p:\n    fields:\n      - name: x\n        type: string\n        rules: [{kind: pattern, value: \"[\"}]\n")}},
			want:  "pattern",
		},
		"bad condition": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("parts:\n  p:\n    fields:\n      - {name: x, type: string, visibleWhen: \"a ==\"}\n")}},
			want:  "visibleWhen",
		},
		"duplicate field across parts": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  f:\n    parts: [p, q]\nparts:\n  p:\n    fields: [{name: x, type: string}]\n  q:\n    fields: [{name: x, type: string}]\n")}},
			want:  `field "x" declared by both`,
		},
		"refinement on unknown path": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  f:\n    parts: [p]\nparts:\n  p:\n    fields: [{name: x, type: string}]\n    refinements: [{kind: matches, path: y, field: x, message: m}]\n")}},
			want:  `unknown field "y"`,
		},
		"custom refinement in document": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("parts:\n  p:\n    fields: [{name: x, type: string}]\n    refinements: [{kind: custom, path: x, message: m}]\n")}},
			want:  "registered from Go",
		},
		"empty file": {
			files: fstest.MapFS{"a.yaml": {Data: []byte("  \n")}},
			want:  "is empty",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := schema.LoadFS(tc.files)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFS_NilFS(t *testing.T) {
	registry, err := schema.LoadFS(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(registry.Forms()) != 0 {
		t.Fatalf("expected empty registry")
	}
}
