package schema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Mode selects how a form is presented.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeWizard Mode = "wizard"
)

// Schema is a named list of field rule-sets plus the cross-field refinements
// operating over the merged record shape.
type Schema struct {
	Name        string
	Fields      []model.FieldSchema
	Refinements []Refinement
}

// Field looks up a field by name.
func (s Schema) Field(name string) (model.FieldSchema, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return model.FieldSchema{}, false
}

// FieldNames returns the field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		names = append(names, field.Name)
	}
	return names
}

// Defaults returns a record seeded with every field's default value. Fields
// without a default get the zero value for their type so controllers always
// hold a complete record.
func (s Schema) Defaults() model.Record {
	out := make(model.Record, len(s.Fields))
	for _, field := range s.Fields {
		out[field.Name] = defaultValue(field)
	}
	return out
}

// Pick returns a schema restricted to the named fields. Refinements are kept
// when their error path is one of the picked fields.
func (s Schema) Pick(name string, fields ...string) Schema {
	keep := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		keep[field] = struct{}{}
	}
	out := Schema{Name: name}
	for _, field := range s.Fields {
		if _, ok := keep[field.Name]; ok {
			out.Fields = append(out.Fields, field)
		}
	}
	for _, ref := range s.Refinements {
		if _, ok := keep[ref.Path]; ok {
			out.Refinements = append(out.Refinements, ref)
		}
	}
	return out
}

// Compose merges partial schemas into one. Field names must be unique across
// parts; refinements are concatenated in part order.
func Compose(name string, parts ...Schema) (Schema, error) {
	out := Schema{Name: name}
	seen := make(map[string]string)
	for _, part := range parts {
		for _, field := range part.Fields {
			if owner, exists := seen[field.Name]; exists {
				return Schema{}, fmt.Errorf("schema: compose %q: field %q declared by both %q and %q", name, field.Name, owner, part.Name)
			}
			seen[field.Name] = part.Name
			out.Fields = append(out.Fields, field)
		}
		out.Refinements = append(out.Refinements, part.Refinements...)
	}
	for _, ref := range out.Refinements {
		if _, ok := seen[ref.Path]; !ok {
			return Schema{}, fmt.Errorf("schema: compose %q: refinement targets unknown field %q", name, ref.Path)
		}
		if ref.Field != "" {
			if _, ok := seen[ref.Field]; !ok {
				return Schema{}, fmt.Errorf("schema: compose %q: refinement references unknown field %q", name, ref.Field)
			}
		}
	}
	return out, nil
}

// Part is a titled partial schema: a section of a single-page form or a step
// of a wizard.
type Part struct {
	ID          string
	Title       string
	Description string
	Fields      []model.FieldSchema
	Refinements []Refinement
}

// Schema returns the part as a standalone schema.
func (p Part) Schema() Schema {
	return Schema{Name: p.ID, Fields: p.Fields, Refinements: p.Refinements}
}

// FieldNames returns the names of the fields owned by the part.
func (p Part) FieldNames() []string {
	return p.Schema().FieldNames()
}

// Form is a complete form definition.
type Form struct {
	ID          string
	Title       string
	Description string
	Mode        Mode
	SubmitLabel string
	Parts       []Part

	schema Schema
}

// NewForm composes the parts into the form's schema.
func NewForm(id, title string, mode Mode, parts ...Part) (Form, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Form{}, fmt.Errorf("schema: form id is required")
	}
	if mode == "" {
		mode = ModeSingle
	}
	if mode != ModeSingle && mode != ModeWizard {
		return Form{}, fmt.Errorf("schema: form %q has unknown mode %q", id, mode)
	}
	if len(parts) == 0 {
		return Form{}, fmt.Errorf("schema: form %q has no parts", id)
	}

	schemas := make([]Schema, 0, len(parts))
	for _, part := range parts {
		schemas = append(schemas, part.Schema())
	}
	composed, err := Compose(id, schemas...)
	if err != nil {
		return Form{}, err
	}

	return Form{
		ID:     id,
		Title:  title,
		Mode:   mode,
		Parts:  append([]Part(nil), parts...),
		schema: composed,
	}, nil
}

// Schema returns the merged schema across all parts.
func (f Form) Schema() Schema {
	return f.schema
}

// Part returns the part at index i.
func (f Form) Part(i int) (Part, bool) {
	if i < 0 || i >= len(f.Parts) {
		return Part{}, false
	}
	return f.Parts[i], true
}

func defaultValue(field model.FieldSchema) any {
	if field.Default != nil {
		return normalizeDefault(field)
	}
	switch field.Type {
	case model.FieldTypeBoolean:
		return false
	case model.FieldTypeMultiSelect:
		return []string{}
	case model.FieldTypeFile:
		return []model.FileHandle{}
	case model.FieldTypeNumber:
		return nil
	default:
		return ""
	}
}

func normalizeDefault(field model.FieldSchema) any {
	switch value := field.Default.(type) {
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return append([]string(nil), value...)
	default:
		return value
	}
}
