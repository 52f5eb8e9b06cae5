package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Registry holds the forms loaded from schema documents.
type Registry struct {
	forms map[string]Form
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{forms: make(map[string]Form)}
}

// Register adds a form built in Go. Duplicate ids are rejected.
func (r *Registry) Register(form Form) error {
	if r == nil {
		return fmt.Errorf("schema: registry is nil")
	}
	if _, exists := r.forms[form.ID]; exists {
		return fmt.Errorf("schema: duplicate form %q", form.ID)
	}
	r.forms[form.ID] = form
	return nil
}

// Form returns the form registered under id.
func (r *Registry) Form(id string) (Form, bool) {
	if r == nil {
		return Form{}, false
	}
	form, ok := r.forms[id]
	return form, ok
}

// Forms lists the registered form ids in sorted order.
func (r *Registry) Forms() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the registered forms ordered by id.
func (r *Registry) All() []Form {
	ids := r.Forms()
	out := make([]Form, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.forms[id])
	}
	return out
}

// LoadFS walks the filesystem and parses JSON/YAML form documents. Parts may be
// declared in one file and referenced by forms in another; references are
// resolved once every document has been read.
func LoadFS(fsys fs.FS) (*Registry, error) {
	registry := NewRegistry()
	if fsys == nil {
		return registry, nil
	}

	parts := make(map[string]Part)
	forms := make(map[string]formFile)
	sources := make(map[string]string)

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawID, raw := range doc.Parts {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("schema: file %s defines an empty part id", path)
			}
			if _, exists := parts[id]; exists {
				return fmt.Errorf("schema: duplicate part %q (file %s)", id, path)
			}
			part, err := normalisePart(raw, id, path)
			if err != nil {
				return err
			}
			parts[id] = part
		}
		for rawID, raw := range doc.Forms {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("schema: file %s defines an empty form id", path)
			}
			if _, exists := forms[id]; exists {
				return fmt.Errorf("schema: duplicate form %q (file %s)", id, path)
			}
			forms[id] = raw
			sources[id] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id, raw := range forms {
		selected := make([]Part, 0, len(raw.Parts))
		for _, ref := range raw.Parts {
			part, ok := parts[strings.TrimSpace(ref)]
			if !ok {
				return nil, fmt.Errorf("schema: form %q (file %s) references unknown part %q", id, sources[id], ref)
			}
			selected = append(selected, part)
		}
		form, err := NewForm(id, raw.Title, raw.Mode, selected...)
		if err != nil {
			return nil, fmt.Errorf("%w (file %s)", err, sources[id])
		}
		form.Description = raw.Description
		form.SubmitLabel = raw.SubmitLabel
		if err := registry.Register(form); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

type documentFile struct {
	Forms map[string]formFile `json:"forms" yaml:"forms"`
	Parts map[string]partFile `json:"parts" yaml:"parts"`
}

type formFile struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Mode        Mode     `json:"mode" yaml:"mode"`
	SubmitLabel string   `json:"submitLabel" yaml:"submitLabel"`
	Parts       []string `json:"parts" yaml:"parts"`
}

type partFile struct {
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description" yaml:"description"`
	Fields      []model.FieldSchema `json:"fields" yaml:"fields"`
	Refinements []Refinement        `json:"refinements" yaml:"refinements"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("schema: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	return doc, nil
}

func normalisePart(raw partFile, id, source string) (Part, error) {
	part := Part{
		ID:          id,
		Title:       raw.Title,
		Description: raw.Description,
	}
	seen := make(map[string]struct{}, len(raw.Fields))
	for _, field := range raw.Fields {
		field.Name = strings.TrimSpace(field.Name)
		if err := CheckField(field); err != nil {
			return Part{}, fmt.Errorf("%w (part %q, file %s)", err, id, source)
		}
		if _, exists := seen[field.Name]; exists {
			return Part{}, fmt.Errorf("schema: part %q (file %s) declares field %q twice", id, source, field.Name)
		}
		seen[field.Name] = struct{}{}
		part.Fields = append(part.Fields, field)
	}
	for _, ref := range raw.Refinements {
		if err := ref.compile(); err != nil {
			return Part{}, fmt.Errorf("%w (part %q, file %s)", err, id, source)
		}
		part.Refinements = append(part.Refinements, ref)
	}
	return part, nil
}

// CheckField reports declaration errors in a field schema: unknown types or
// rule kinds, unparseable rule parameters and invalid visibility conditions.
func CheckField(field model.FieldSchema) error {
	if field.Name == "" {
		return fmt.Errorf("schema: field name is required")
	}
	if !field.Type.Valid() {
		return fmt.Errorf("schema: field %q has unknown type %q", field.Name, field.Type)
	}
	if field.VisibleWhen != "" {
		if _, err := condition.Compile(field.VisibleWhen); err != nil {
			return fmt.Errorf("schema: field %q visibleWhen: %w", field.Name, err)
		}
	}
	for idx, rule := range field.Rules {
		if err := checkRule(field, rule); err != nil {
			return fmt.Errorf("schema: field %q rule %d: %w", field.Name, idx, err)
		}
	}
	return nil
}

func checkRule(field model.FieldSchema, rule model.Rule) error {
	switch rule.Kind {
	case model.RuleKindRequired, model.RuleKindEmail, model.RuleKindAccepted, model.RuleKindDate:
		return nil
	case model.RuleKindMinLength, model.RuleKindMaxLength, model.RuleKindMinItems, model.RuleKindMinAge, model.RuleKindMaxFileSize:
		if _, err := strconv.ParseInt(rule.Value, 10, 64); err != nil {
			return fmt.Errorf("%s expects an integer, got %q", rule.Kind, rule.Value)
		}
		return nil
	case model.RuleKindMin, model.RuleKindMax:
		if _, err := strconv.ParseFloat(rule.Value, 64); err != nil {
			return fmt.Errorf("%s expects a number, got %q", rule.Kind, rule.Value)
		}
		return nil
	case model.RuleKindPattern:
		if _, err := regexp.Compile(rule.Value); err != nil {
			return fmt.Errorf("pattern %q: %w", rule.Value, err)
		}
		return nil
	case model.RuleKindOneOf:
		if len(rule.Values) == 0 && len(field.Options) == 0 {
			return fmt.Errorf("oneOf requires values or field options")
		}
		return nil
	case model.RuleKindFileTypes:
		if len(rule.Values) == 0 {
			return fmt.Errorf("fileTypes requires values")
		}
		return nil
	case model.RuleKindUnique:
		if strings.TrimSpace(rule.Value) == "" {
			return fmt.Errorf("unique requires a checker name")
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
