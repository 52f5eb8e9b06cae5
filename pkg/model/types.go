package model

// FieldType is the semantic type of a form field. It decides how raw input is
// coerced and which Go type the validation engine expects in a Record.
type FieldType string

const (
	FieldTypeString      FieldType = "string"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeEnum        FieldType = "enum"
	FieldTypeFile        FieldType = "file"
	FieldTypeMultiSelect FieldType = "multiselect"
)

// Valid reports whether the type is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeNumber, FieldTypeBoolean, FieldTypeEnum, FieldTypeFile, FieldTypeMultiSelect:
		return true
	default:
		return false
	}
}

// Canonical rule kinds understood by the validation engine.
const (
	RuleKindRequired    = "required"
	RuleKindMinLength   = "minLength"
	RuleKindMaxLength   = "maxLength"
	RuleKindMin         = "min"
	RuleKindMax         = "max"
	RuleKindEmail       = "email"
	RuleKindPattern     = "pattern"
	RuleKindOneOf       = "oneOf"
	RuleKindMinItems    = "minItems"
	RuleKindAccepted    = "accepted"
	RuleKindDate        = "date"
	RuleKindMinAge      = "minAge"
	RuleKindMaxFileSize = "maxFileSize"
	RuleKindFileTypes   = "fileTypes"
	RuleKindUnique      = "unique"
)

// Rule is a single constraint applied to a field. Value holds the rule
// parameter as a string (a bound, a pattern, a checker name) so schema files
// stay stable when serialised; Values carries list parameters such as the
// accepted MIME types.
type Rule struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Value   string   `json:"value,omitempty" yaml:"value,omitempty"`
	Values  []string `json:"values,omitempty" yaml:"values,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Async reports whether the rule needs an external checker.
func (r Rule) Async() bool {
	return r.Kind == RuleKindUnique
}

// FieldSchema declares one form field: how it is typed, rendered and validated.
type FieldSchema struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Widget      string    `json:"widget,omitempty" yaml:"widget,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	// RequiredMessage overrides the message reported when the field is absent.
	RequiredMessage string   `json:"requiredMessage,omitempty" yaml:"requiredMessage,omitempty"`
	Options         []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default         any      `json:"default,omitempty" yaml:"default,omitempty"`
	Rules           []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	// VisibleWhen is a condition expression (for example `accountType == "Live"`)
	// deciding whether renderers show the field.
	VisibleWhen string `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	// Sanitize marks free text that must be passed through the HTML sanitizer
	// before it reaches a submission sink.
	Sanitize bool `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
}

// DisplayLabel returns the label or falls back to the field name.
func (f FieldSchema) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// HasAsyncRules reports whether any rule requires an external checker.
func (f FieldSchema) HasAsyncRules() bool {
	for _, rule := range f.Rules {
		if rule.Async() {
			return true
		}
	}
	return false
}

// FileHandle mirrors what a browser file picker exposes for a selected file.
type FileHandle struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"type"`
}
