package form

import (
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Selection turns a multi-select event payload into a set: empty entries are
// dropped and duplicates keep their first position.
func Selection(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// DecodeValues converts posted form values into a record typed for the
// schema. Only fields declared by the schema are read. Numbers that fail to
// parse are kept as text so validation reports a type error.
func DecodeValues(s schema.Schema, values url.Values, files map[string][]*multipart.FileHeader) model.Record {
	out := make(model.Record, len(s.Fields))
	for _, field := range s.Fields {
		switch field.Type {
		case model.FieldTypeBoolean:
			out[field.Name] = checked(values.Get(field.Name))
		case model.FieldTypeNumber:
			out[field.Name] = number(values.Get(field.Name))
		case model.FieldTypeMultiSelect:
			out[field.Name] = Selection(values[field.Name])
		case model.FieldTypeFile:
			out[field.Name] = FileHandles(files[field.Name])
		default:
			out[field.Name] = values.Get(field.Name)
		}
	}
	return out
}

// DecodeField converts the raw values posted for a single field.
func DecodeField(field model.FieldSchema, raw []string) any {
	first := ""
	if len(raw) > 0 {
		first = raw[0]
	}
	switch field.Type {
	case model.FieldTypeBoolean:
		return checked(first)
	case model.FieldTypeNumber:
		return number(first)
	case model.FieldTypeMultiSelect:
		return Selection(raw)
	case model.FieldTypeFile:
		return []model.FileHandle{}
	default:
		return first
	}
}

// Normalize maps a decoded JSON object onto the Go types the engine expects.
// File fields accept objects shaped like a browser File ({name, size, type}).
func Normalize(s schema.Schema, raw map[string]any) model.Record {
	out := make(model.Record, len(raw))
	for _, field := range s.Fields {
		value, ok := raw[field.Name]
		if !ok {
			continue
		}
		switch field.Type {
		case model.FieldTypeMultiSelect:
			if items, ok := value.([]any); ok {
				strs := make([]string, 0, len(items))
				for _, item := range items {
					if text, ok := item.(string); ok {
						strs = append(strs, text)
					} else {
						strs = nil
						break
					}
				}
				if strs != nil {
					value = Selection(strs)
				}
			}
		case model.FieldTypeFile:
			if handles, ok := fileObjects(value); ok {
				value = handles
			}
		}
		out[field.Name] = value
	}
	return out
}

// FileHandles describes uploaded files without reading them beyond the bytes
// needed to sniff a missing content type.
func FileHandles(headers []*multipart.FileHeader) []model.FileHandle {
	out := make([]model.FileHandle, 0, len(headers))
	for _, header := range headers {
		if header == nil || header.Filename == "" {
			continue
		}
		out = append(out, model.FileHandle{
			Name:     header.Filename,
			Size:     header.Size,
			MIMEType: contentType(header),
		})
	}
	return out
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	file, err := header.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer file.Close()
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

func fileObjects(value any) ([]model.FileHandle, bool) {
	items, ok := value.([]any)
	if !ok {
		if obj, isObj := value.(map[string]any); isObj {
			items = []any{obj}
		} else {
			return nil, false
		}
	}
	out := make([]model.FileHandle, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		name, _ := obj["name"].(string)
		size, _ := obj["size"].(float64)
		mime, _ := obj["type"].(string)
		out = append(out, model.FileHandle{Name: name, Size: int64(size), MIMEType: mime})
	}
	return out, true
}

func checked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func number(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return f
}
