package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Today is the fixed "now" used by fixtures: 2024-06-15 12:00 UTC.
var Today = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

// Clock returns a func reporting a fixed instant.
func Clock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Forms loads the built-in form registry.
func Forms(t *testing.T) *schema.Registry {
	t.Helper()

	registry, err := formflow.LoadForms()
	if err != nil {
		t.Fatalf("load forms: %v", err)
	}
	return registry
}

// Form loads a single built-in form.
func Form(t *testing.T, id string) schema.Form {
	t.Helper()

	form, ok := Forms(t).Form(id)
	if !ok {
		t.Fatalf("form %q not registered", id)
	}
	return form
}

// ValidFreelance returns a freelance record that passes every rule.
func ValidFreelance() model.Record {
	return model.Record{
		"fullName":        "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "analytical",
		"age":             float64(36),
		"role":            "Developer",
		"skills":          []string{"JavaScript", "React"},
		"experienceLevel": "senior",
		"remoteWork":      true,
		"startDate":       "2024-07-01",
		"hoursPerWeek":    float64(40),
		"bio":             "I write programs for engines.",
		"profileImage":    []model.FileHandle{{Name: "me.png", Size: 1 << 20, MIMEType: "image/png"}},
		"newsletter":      false,
	}
}

// ValidOnboarding returns an onboarding record that passes every rule when
// validated against Today.
func ValidOnboarding() model.Record {
	return model.Record{
		"fullName":        "Grace Hopper",
		"email":           "grace@example.com",
		"dob":             "1990-01-01",
		"accountType":     "Demo",
		"riskTolerance":   "Low",
		"pan":             "",
		"password":        "Cobol#1959",
		"confirmPassword": "Cobol#1959",
		"agreeToTerms":    true,
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureOutput executes a render function that writes to an io.Writer and
// returns what was written.
func CaptureOutput(t *testing.T, render func(io.Writer) error) string {
	t.Helper()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}
