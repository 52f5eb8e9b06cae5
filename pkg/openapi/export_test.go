package openapi_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func buildDocument(t *testing.T) *openapi3.T {
	t.Helper()

	registry := testsupport.Forms(t)
	doc, err := openapi.Document(registry.All(), openapi.WithTitle("Test API"), openapi.WithServer("http://localhost:8080"))
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	return doc
}

func TestDocument_Validates(t *testing.T) {
	doc := buildDocument(t)
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("document is invalid: %v", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := openapi3.NewLoader().LoadFromData(raw)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := loaded.Validate(context.Background()); err != nil {
		t.Fatalf("reloaded document is invalid: %v", err)
	}
	if loaded.Info.Title != "Test API" || len(loaded.Servers) != 1 {
		t.Fatalf("unexpected info %#v servers %#v", loaded.Info, loaded.Servers)
	}
}

func TestDocument_Paths(t *testing.T) {
	doc := buildDocument(t)

	for _, path := range []string{
		"/api/forms/freelance/validate",
		"/api/forms/freelance/fields/{field}/validate",
		"/api/forms/freelance/submit",
		"/api/forms/onboarding/validate",
		"/api/forms/onboarding/fields/{field}/validate",
	} {
		if item := doc.Paths.Value(path); item == nil || item.Post == nil {
			t.Errorf("missing POST %s", path)
		}
	}
	if doc.Paths.Value("/api/forms/onboarding/submit") != nil {
		t.Fatalf("wizard forms should not expose a direct submit")
	}

	op := doc.Paths.Value("/api/forms/onboarding/fields/{field}/validate").Post
	if op.OperationID != "validateOnboardingField" {
		t.Fatalf("operation id = %q", op.OperationID)
	}
	param := op.Parameters.GetByInAndName(openapi3.ParameterInPath, "field")
	if param == nil || len(param.Schema.Value.Enum) != 9 {
		t.Fatalf("field parameter should enumerate the onboarding fields: %#v", param)
	}
	if op.Responses.Status(200) == nil || op.Responses.Status(404) == nil {
		t.Fatalf("missing responses")
	}
}

func TestRecordSchema_Rules(t *testing.T) {
	doc := buildDocument(t)

	freelance := doc.Components.Schemas[openapi.RecordSchemaName("freelance")].Value
	if freelance.Title != "Freelancer Registration" {
		t.Fatalf("title = %q", freelance.Title)
	}
	wantRequired := []string{
		"fullName", "email", "password", "age", "role", "skills", "experienceLevel",
		"startDate", "hoursPerWeek", "bio", "profileImage",
	}
	if diff := cmp.Diff(wantRequired, freelance.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	props := freelance.Properties
	if got := props["email"].Value.Format; got != "email" {
		t.Errorf("email format = %q", got)
	}
	if got := *props["age"].Value.Min; got != 18 {
		t.Errorf("age min = %v", got)
	}
	if got := props["skills"].Value.MinItems; got != 1 {
		t.Errorf("skills minItems = %d", got)
	}
	if got := props["skills"].Value.Default; got != nil {
		t.Errorf("empty skills default should be omitted, got %#v", got)
	}
	image := props["profileImage"].Value.Items.Value
	if got := *image.Properties["size"].Value.Max; got != 2097152 {
		t.Errorf("profile image size max = %v", got)
	}
	if diff := cmp.Diff([]any{"image/jpeg", "image/png"}, image.Properties["type"].Value.Enum); diff != "" {
		t.Errorf("profile image types mismatch (-want +got):\n%s", diff)
	}

	onboarding := doc.Components.Schemas[openapi.RecordSchemaName("onboarding")].Value
	if got := onboarding.Properties["pan"].Value.Pattern; got != "^[A-Z0-9]{10}$" {
		t.Errorf("pan pattern = %q", got)
	}
	if got := onboarding.Properties["password"].Value.Pattern; got != "[A-Z]" {
		t.Errorf("password keeps the first pattern, got %q", got)
	}
	refinements, ok := onboarding.Extensions[openapi.RefinementsExtension].([]map[string]string)
	if !ok || len(refinements) != 2 {
		t.Fatalf("unexpected refinements %#v", onboarding.Extensions)
	}
}

func TestDocument_Errors(t *testing.T) {
	if _, err := openapi.Document(nil); err == nil {
		t.Fatalf("expected error without forms")
	}

	form := testsupport.Form(t, "freelance")
	if _, err := openapi.Document([]schema.Form{form, form}); err == nil {
		t.Fatalf("expected duplicate form error")
	}
}
