package schema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Refinement kinds.
const (
	RefinementMatches        = "matches"
	RefinementRequiredUnless = "requiredUnless"
	RefinementRequiredWhen   = "requiredWhen"
	RefinementCustom         = "custom"
)

// CheckFunc reports whether a record satisfies a cross-field rule.
type CheckFunc func(model.Record) bool

// Refinement is a cross-field rule. Its error lands on Path, which may be any
// field of the composed schema.
type Refinement struct {
	Kind    string `json:"kind" yaml:"kind"`
	Path    string `json:"path" yaml:"path"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	When    string `json:"when,omitempty" yaml:"when,omitempty"`
	Message string `json:"message" yaml:"message"`

	check CheckFunc
	cond  *condition.Expr
}

// Matches requires path to hold the same value as field.
func Matches(path, field, message string) Refinement {
	return Refinement{Kind: RefinementMatches, Path: path, Field: field, Message: message}
}

// RequiredUnless requires path to be non-empty unless the condition holds.
func RequiredUnless(path, when, message string) (Refinement, error) {
	ref := Refinement{Kind: RefinementRequiredUnless, Path: path, When: when, Message: message}
	return ref, ref.compile()
}

// RequiredWhen requires path to be non-empty when the condition holds.
func RequiredWhen(path, when, message string) (Refinement, error) {
	ref := Refinement{Kind: RefinementRequiredWhen, Path: path, When: when, Message: message}
	return ref, ref.compile()
}

// Custom wraps a Go function as a refinement.
func Custom(path, message string, check CheckFunc) Refinement {
	return Refinement{Kind: RefinementCustom, Path: path, Message: message, check: check}
}

// Passes evaluates the refinement against the record.
func (r Refinement) Passes(values model.Record) bool {
	switch r.Kind {
	case RefinementMatches:
		return sameValue(values[r.Path], values[r.Field])
	case RefinementRequiredUnless:
		return r.cond.Eval(values) || Present(values[r.Path])
	case RefinementRequiredWhen:
		return !r.cond.Eval(values) || Present(values[r.Path])
	case RefinementCustom:
		if r.check == nil {
			return true
		}
		return r.check(values)
	default:
		return true
	}
}

func (r *Refinement) compile() error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("schema: refinement %q requires a path", r.Kind)
	}
	switch r.Kind {
	case RefinementMatches:
		if strings.TrimSpace(r.Field) == "" {
			return fmt.Errorf("schema: matches refinement on %q requires a field", r.Path)
		}
		return nil
	case RefinementRequiredUnless, RefinementRequiredWhen:
		expr, err := condition.Compile(r.When)
		if err != nil {
			return fmt.Errorf("schema: %s refinement on %q: %w", r.Kind, r.Path, err)
		}
		r.cond = expr
		return nil
	case RefinementCustom:
		return fmt.Errorf("schema: custom refinement on %q must be registered from Go", r.Path)
	default:
		return fmt.Errorf("schema: unknown refinement kind %q", r.Kind)
	}
}

// Present reports whether a value counts as provided.
func Present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	case []model.FileHandle:
		return len(v) > 0
	default:
		return true
	}
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
