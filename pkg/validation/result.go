package validation

import "github.com/goliatone/go-formflow/pkg/model"

// Issue is a single validation failure.
type Issue struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result is either the accepted record or the per-path error messages. Issues
// lists the same failures in schema order with refinements last.
type Result struct {
	Value  model.Record      `json:"value,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
	Issues []Issue           `json:"issues,omitempty"`
}

// Valid reports whether the record passed every rule in scope.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Error returns the message recorded for path, if any.
func (r Result) Error(path string) string {
	return r.Errors[path]
}

// FirstInvalid returns the path of the first failing field.
func (r Result) FirstInvalid() string {
	if len(r.Issues) == 0 {
		return ""
	}
	return r.Issues[0].Path
}

func (r *Result) add(path, rule, message string) {
	if _, exists := r.Errors[path]; exists {
		return
	}
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[path] = message
	r.Issues = append(r.Issues, Issue{Path: path, Rule: rule, Message: message})
}
