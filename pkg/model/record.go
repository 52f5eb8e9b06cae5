package model

import "sort"

// Record maps field names to their current values. Values use the Go types
// the validation engine expects: string, float64, bool, []string for
// multi-selects and []FileHandle for file fields.
type Record map[string]any

// Clone returns a copy of the record. Slice values are copied so callers can
// mutate the clone without touching the original.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	for key, value := range r {
		out[key] = cloneValue(value)
	}
	return out
}

// Merge returns a copy of r with every entry of other applied on top.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for key, value := range other {
		out[key] = cloneValue(value)
	}
	return out
}

// Pick returns a copy restricted to the named keys. Missing keys are skipped.
func (r Record) Pick(keys ...string) Record {
	out := make(Record, len(keys))
	for _, key := range keys {
		if value, ok := r[key]; ok {
			out[key] = cloneValue(value)
		}
	}
	return out
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value under key when it is a string.
func (r Record) String(key string) string {
	if value, ok := r[key].(string); ok {
		return value
	}
	return ""
}

// Bool returns the value under key when it is a bool.
func (r Record) Bool(key string) bool {
	if value, ok := r[key].(bool); ok {
		return value
	}
	return false
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		if typed == nil {
			return typed
		}
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case []FileHandle:
		if typed == nil {
			return typed
		}
		out := make([]FileHandle, len(typed))
		copy(out, typed)
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = cloneValue(v)
		}
		return out
	default:
		return typed
	}
}
