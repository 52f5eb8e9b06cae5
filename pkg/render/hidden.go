package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden input emitted alongside the visible fields.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// TokenFieldName is the hidden input carrying the wizard token.
const TokenFieldName = "_token"

// TokenField carries the wizard validation token so the server can tell which
// state a posted step was rendered from.
func TokenField(token uint64) HiddenField {
	return Hidden(TokenFieldName, token)
}

// SortedHiddenFields normalises and sorts hidden fields for deterministic
// rendering. Empty names are dropped and later fields win on collisions.
func SortedHiddenFields(fields ...HiddenField) []HiddenField {
	clean := make(map[string]string, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		clean[name] = field.Value
	}
	if len(clean) == 0 {
		return nil
	}

	names := make([]string, 0, len(clean))
	for name := range clean {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: name, Value: clean[name]})
	}
	return result
}
