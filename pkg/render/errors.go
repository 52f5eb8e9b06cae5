package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// ErrorMapping splits error messages into field-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string]string
	Form   []string
}

// MapErrors assigns each message to the schema field its path names. Paths
// may use JSON pointer or dotted forms ("/pan", "body.pan"). Paths that do
// not name a field become form-level messages so none are lost.
func MapErrors(s schema.Schema, errs map[string]string) ErrorMapping {
	mapping := ErrorMapping{}
	if len(errs) == 0 {
		return mapping
	}

	paths := make([]string, 0, len(errs))
	for path := range errs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, raw := range paths {
		message := strings.TrimSpace(errs[raw])
		if message == "" {
			continue
		}
		field, ok := matchField(s, raw)
		if !ok {
			mapping.Form = MergeFormErrors(mapping.Form, message)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string]string)
		}
		if _, exists := mapping.Fields[field]; !exists {
			mapping.Fields[field] = message
		}
	}
	return mapping
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)

	out := make([]string, 0, len(combined))
	seen := make(map[string]struct{}, len(combined))
	for _, message := range combined {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func matchField(s schema.Schema, raw string) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	for _, segment := range parsePathSegments(raw) {
		if _, ok := s.Field(segment); ok {
			return segment, true
		}
	}
	return "", false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = replacer.Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
