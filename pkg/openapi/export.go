// Package openapi describes the validation API of registered forms as an
// OpenAPI 3 document built with kin-openapi.
package openapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

// RefinementsExtension lists the cross-field rules of a record schema.
const RefinementsExtension = "x-formflow-refinements"

// Option customises the generated document.
type Option func(*config)

type config struct {
	title   string
	version string
	servers []string
}

// WithTitle sets info.title.
func WithTitle(title string) Option {
	return func(cfg *config) {
		if title = strings.TrimSpace(title); title != "" {
			cfg.title = title
		}
	}
}

// WithVersion sets info.version.
func WithVersion(version string) Option {
	return func(cfg *config) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.version = version
		}
	}
}

// WithServer appends a server URL.
func WithServer(url string) Option {
	return func(cfg *config) {
		if url = strings.TrimSpace(url); url != "" {
			cfg.servers = append(cfg.servers, url)
		}
	}
}

// Path helpers shared with the HTTP server.
func ValidatePath(formID string) string { return "/api/forms/" + formID + "/validate" }

func FieldValidatePath(formID string) string {
	return "/api/forms/" + formID + "/fields/{field}/validate"
}

func SubmitPath(formID string) string { return "/api/forms/" + formID + "/submit" }

// RecordSchemaName is the component name of a form's record schema.
func RecordSchemaName(formID string) string {
	return exported(formID) + "Record"
}

// Document builds the API description for forms. Single-page forms also get
// a submit operation; wizards submit through their session endpoints.
func Document(forms []schema.Form, options ...Option) (*openapi3.T, error) {
	if len(forms) == 0 {
		return nil, errors.New("openapi: no forms to describe")
	}
	cfg := config{title: "Formflow API", version: "1.0.0"}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info:    &openapi3.Info{Title: cfg.title, Version: cfg.version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Issue":            openapi3.NewSchemaRef("", issueSchema()),
				"ValidationResult": openapi3.NewSchemaRef("", resultSchema()),
				"FieldResult":      openapi3.NewSchemaRef("", fieldResultSchema()),
				"Receipt":          openapi3.NewSchemaRef("", receiptSchema()),
			},
		},
	}
	for _, server := range cfg.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: server})
	}

	for _, form := range forms {
		if err := addForm(doc, form); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func addForm(doc *openapi3.T, form schema.Form) error {
	name := RecordSchemaName(form.ID)
	if _, exists := doc.Components.Schemas[name]; exists {
		return fmt.Errorf("openapi: form %q described twice", form.ID)
	}
	record, err := RecordSchema(form.Schema())
	if err != nil {
		return fmt.Errorf("openapi: form %q: %w", form.ID, err)
	}
	record.Title = form.Title
	record.Description = form.Description
	doc.Components.Schemas[name] = openapi3.NewSchemaRef("", record)

	body := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(componentRef(doc, name))}
	tags := []string{form.ID}

	doc.Paths.Set(ValidatePath(form.ID), &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "validate" + exported(form.ID),
			Summary:     "Validate a full " + form.Title + " record",
			Tags:        tags,
			RequestBody: body,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, response(doc, "Validation outcome", "ValidationResult")),
				openapi3.WithStatus(400, plain("Malformed request body")),
			),
		},
	})

	field := openapi3.NewPathParameter("field").
		WithDescription("Field to validate").
		WithSchema(openapi3.NewStringSchema().WithEnum(enumOf(form.Schema().FieldNames())...))
	doc.Paths.Set(FieldValidatePath(form.ID), &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "validate" + exported(form.ID) + "Field",
			Summary:     "Validate one field against the current record",
			Tags:        tags,
			Parameters:  openapi3.Parameters{{Value: field}},
			RequestBody: body,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, response(doc, "Field outcome", "FieldResult")),
				openapi3.WithStatus(404, plain("Unknown field")),
			),
		},
	})

	if form.Mode == schema.ModeSingle {
		doc.Paths.Set(SubmitPath(form.ID), &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "submit" + exported(form.ID),
				Summary:     "Validate and submit a " + form.Title + " record",
				Tags:        tags,
				RequestBody: body,
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(201, response(doc, "Submission accepted", "Receipt")),
					openapi3.WithStatus(422, response(doc, "Submission blocked by validation errors", "ValidationResult")),
				),
			},
		})
	}
	return nil
}

// RecordSchema maps a form schema onto a JSON Schema object. Rule bounds are
// carried over where JSON Schema has an equivalent keyword.
func RecordSchema(s schema.Schema) (*openapi3.Schema, error) {
	out := openapi3.NewObjectSchema()
	var required []string
	for _, field := range s.Fields {
		prop, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		out.WithProperty(field.Name, prop)
		if field.Required {
			required = append(required, field.Name)
		}
	}
	out.Required = required

	if len(s.Refinements) > 0 {
		refinements := make([]map[string]string, 0, len(s.Refinements))
		for _, r := range s.Refinements {
			entry := map[string]string{"kind": r.Kind, "path": r.Path, "message": r.Message}
			if r.Field != "" {
				entry["field"] = r.Field
			}
			if r.When != "" {
				entry["when"] = r.When
			}
			refinements = append(refinements, entry)
		}
		out.Extensions = map[string]any{RefinementsExtension: refinements}
	}
	return out, nil
}

func fieldSchema(field model.FieldSchema) (*openapi3.Schema, error) {
	var out *openapi3.Schema
	switch field.Type {
	case model.FieldTypeNumber:
		out = openapi3.NewFloat64Schema()
	case model.FieldTypeBoolean:
		out = openapi3.NewBoolSchema()
	case model.FieldTypeEnum:
		out = openapi3.NewStringSchema().WithEnum(enumOf(field.Options)...)
	case model.FieldTypeMultiSelect:
		items := openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			items.WithEnum(enumOf(field.Options)...)
		}
		out = openapi3.NewArraySchema().WithItems(items)
	case model.FieldTypeFile:
		out = openapi3.NewArraySchema().WithItems(fileSchema())
	default:
		out = openapi3.NewStringSchema()
	}
	out.Title = field.DisplayLabel()
	out.Description = field.Help
	if value, ok := defaultValue(field.Default); ok {
		out.Default = value
	}

	for _, rule := range field.Rules {
		if err := applyRule(out, rule); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyRule(out *openapi3.Schema, rule model.Rule) error {
	switch rule.Kind {
	case model.RuleKindMinLength, model.RuleKindMaxLength, model.RuleKindMinItems, model.RuleKindMaxFileSize:
		n, err := strconv.ParseInt(rule.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", rule.Kind, err)
		}
		switch rule.Kind {
		case model.RuleKindMinLength:
			out.WithMinLength(n)
		case model.RuleKindMaxLength:
			out.WithMaxLength(n)
		case model.RuleKindMinItems:
			out.WithMinItems(n)
		case model.RuleKindMaxFileSize:
			if size := fileProperty(out, "size"); size != nil {
				size.WithMax(float64(n))
			}
		}
	case model.RuleKindMin, model.RuleKindMax:
		f, err := strconv.ParseFloat(rule.Value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", rule.Kind, err)
		}
		if rule.Kind == model.RuleKindMin {
			out.WithMin(f)
		} else {
			out.WithMax(f)
		}
	case model.RuleKindEmail:
		out.WithFormat("email")
	case model.RuleKindDate, model.RuleKindMinAge:
		out.WithFormat("date")
	case model.RuleKindPattern:
		// Several pattern rules may apply; only the first maps to "pattern".
		if out.Pattern == "" {
			out.WithPattern(rule.Value)
		}
	case model.RuleKindFileTypes:
		if mime := fileProperty(out, "type"); mime != nil {
			mime.WithEnum(enumOf(rule.Values)...)
		}
	}
	return nil
}

func fileProperty(out *openapi3.Schema, name string) *openapi3.Schema {
	if out.Items == nil || out.Items.Value == nil {
		return nil
	}
	prop := out.Items.Value.Properties[name]
	if prop == nil {
		return nil
	}
	return prop.Value
}

// defaultValue converts a schema default to its JSON form. Empty list
// defaults are dropped since they would contradict minItems.
func defaultValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case []string:
		return enumOf(v), len(v) > 0
	case []any:
		return v, len(v) > 0
	default:
		return v, true
	}
}

func fileSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("size", openapi3.NewInt64Schema().WithMin(0)).
		WithProperty("type", openapi3.NewStringSchema())
}

func issueSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("rule", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())
}

func resultSchema() *openapi3.Schema {
	out := openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema()).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("value", openapi3.NewObjectSchema())
	out.WithPropertyRef("issues", &openapi3.SchemaRef{Value: openapi3.NewArraySchema().WithItems(issueSchema())})
	out.Required = []string{"valid"}
	return out
}

func fieldResultSchema() *openapi3.Schema {
	out := openapi3.NewObjectSchema().
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("valid", openapi3.NewBoolSchema()).
		WithProperty("error", openapi3.NewStringSchema())
	out.Required = []string{"field", "valid"}
	return out
}

func receiptSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewUUIDSchema()).
		WithProperty("message", openapi3.NewStringSchema())
}

// componentRef points at a registered component and keeps its resolved value
// so the document validates without a loader round trip.
func componentRef(doc *openapi3.T, name string) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if existing := doc.Components.Schemas[name]; existing != nil {
		value = existing.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func response(doc *openapi3.T, description, schemaName string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchemaRef(componentRef(doc, schemaName))}
}

func plain(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description)}
}

func enumOf(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

// exported turns "freelance" or "user-onboarding" into "Freelance" or
// "UserOnboarding".
func exported(id string) string {
	var b strings.Builder
	upper := true
	for _, r := range id {
		if r == '-' || r == '_' || r == '.' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
