// Package formflow bundles the built-in form definitions and exposes
// convenience constructors over the schema and validation packages.
package formflow

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Built-in form identifiers.
const (
	FreelanceForm  = "freelance"
	OnboardingForm = "onboarding"
)

//go:embed schemas/*.yaml
var embeddedSchemas embed.FS

// SchemasFS exposes the built-in form definitions so callers can load them
// alongside their own documents.
//
//	registry, err := schema.LoadFS(formflow.SchemasFS())
func SchemasFS() fs.FS {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		return embeddedSchemas
	}
	return sub
}

// LoadForms parses the built-in definitions into a registry.
func LoadForms() (*schema.Registry, error) {
	return schema.LoadFS(SchemasFS())
}

// MustLoadForms is LoadForms for program initialisation.
func MustLoadForms() *schema.Registry {
	registry, err := LoadForms()
	if err != nil {
		panic(err)
	}
	return registry
}

// NewEngine exposes the validation engine constructor from the top-level
// module.
func NewEngine(options ...validation.Option) *validation.Engine {
	return validation.New(options...)
}
