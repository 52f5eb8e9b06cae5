package validation

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/model"
)

// coerce normalises a record value to the Go type the rules expect for the
// field type. A nil value is always accepted so presence can be checked
// separately.
func coerce(kind model.FieldType, raw any) (any, bool) {
	if raw == nil {
		return nil, true
	}
	switch kind {
	case model.FieldTypeString, model.FieldTypeEnum:
		s, ok := raw.(string)
		return s, ok
	case model.FieldTypeBoolean:
		b, ok := raw.(bool)
		return b, ok
	case model.FieldTypeNumber:
		return toFloat(raw)
	case model.FieldTypeMultiSelect:
		return toStrings(raw)
	case model.FieldTypeFile:
		return toFiles(raw)
	default:
		return nil, false
	}
}

func toFloat(raw any) (any, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return nil, false
	}
}

func toStrings(raw any) (any, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toFiles(raw any) (any, bool) {
	switch v := raw.(type) {
	case []model.FileHandle:
		return v, true
	case model.FileHandle:
		return []model.FileHandle{v}, true
	default:
		return nil, false
	}
}

func requiredMessage(field model.FieldSchema) string {
	if field.RequiredMessage != "" {
		return field.RequiredMessage
	}
	return fmt.Sprintf("%s is required", field.DisplayLabel())
}

func typeMessage(field model.FieldSchema) string {
	label := field.DisplayLabel()
	switch field.Type {
	case model.FieldTypeNumber:
		return fmt.Sprintf("%s must be a number", label)
	case model.FieldTypeBoolean:
		return fmt.Sprintf("%s must be true or false", label)
	case model.FieldTypeMultiSelect:
		return fmt.Sprintf("%s must be a list of selections", label)
	case model.FieldTypeFile:
		return fmt.Sprintf("%s must be a file", label)
	default:
		return fmt.Sprintf("%s must be text", label)
	}
}

func ruleMessage(field model.FieldSchema, rule model.Rule) string {
	if rule.Message != "" {
		return rule.Message
	}
	label := field.DisplayLabel()
	switch rule.Kind {
	case model.RuleKindRequired:
		return requiredMessage(field)
	case model.RuleKindMinLength:
		return fmt.Sprintf("%s must be at least %s characters", label, rule.Value)
	case model.RuleKindMaxLength:
		return fmt.Sprintf("%s must be at most %s characters", label, rule.Value)
	case model.RuleKindMin:
		return fmt.Sprintf("%s must be at least %s", label, rule.Value)
	case model.RuleKindMax:
		return fmt.Sprintf("%s must be at most %s", label, rule.Value)
	case model.RuleKindMinItems:
		return fmt.Sprintf("Select at least %s for %s", rule.Value, label)
	case model.RuleKindEmail:
		return fmt.Sprintf("%s must be a valid email address", label)
	case model.RuleKindUnique:
		return fmt.Sprintf("%s is already taken", label)
	case model.RuleKindMinAge:
		return fmt.Sprintf("You must be at least %s years old", rule.Value)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
