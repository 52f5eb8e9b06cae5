// Package formstate tracks the values, error messages and validation status of
// a form's fields. States are plain data: they serialise to JSON and are
// copied rather than shared between intents.
package formstate

import (
	"sort"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// State holds the current field values and per-field feedback. An entry in
// Errors only exists for a field listed in Validated.
type State struct {
	Values    model.Record      `json:"values"`
	Errors    map[string]string `json:"errors,omitempty"`
	Validated map[string]bool   `json:"validated,omitempty"`
	Focus     string            `json:"focus,omitempty"`
}

// New seeds a state with default values.
func New(defaults model.Record) State {
	return State{Values: defaults.Clone()}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{Values: s.Values.Clone(), Focus: s.Focus}
	if len(s.Errors) > 0 {
		out.Errors = make(map[string]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	if len(s.Validated) > 0 {
		out.Validated = make(map[string]bool, len(s.Validated))
		for k, v := range s.Validated {
			out.Validated[k] = v
		}
	}
	return out
}

// Set stores a field value.
func (s *State) Set(name string, value any) {
	if s.Values == nil {
		s.Values = make(model.Record)
	}
	s.Values[name] = value
}

// Update copies every key of values into the state.
func (s *State) Update(values model.Record) {
	for k, v := range values {
		s.Set(k, v)
	}
}

// Record applies a validation result for the fields that were in scope: each
// is marked validated, stale messages are cleared and new ones stored. Focus
// moves to the first failing field.
func (s *State) Record(fields []string, result validation.Result) {
	if s.Validated == nil {
		s.Validated = make(map[string]bool, len(fields))
	}
	for _, name := range fields {
		s.Validated[name] = true
		delete(s.Errors, name)
	}
	for _, issue := range result.Issues {
		if s.Errors == nil {
			s.Errors = make(map[string]string)
		}
		s.Validated[issue.Path] = true
		s.Errors[issue.Path] = issue.Message
	}
	s.Focus = result.FirstInvalid()
}

// ErrorFor returns the message for a field.
func (s State) ErrorFor(name string) string {
	return s.Errors[name]
}

// WasValidated reports whether the field has been validated at least once.
func (s State) WasValidated(name string) bool {
	return s.Validated[name]
}

// HasErrors reports whether any field currently has an error.
func (s State) HasErrors() bool {
	return len(s.Errors) > 0
}

// ValidatedFields lists validated field names in sorted order.
func (s State) ValidatedFields() []string {
	out := make([]string, 0, len(s.Validated))
	for name, ok := range s.Validated {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
