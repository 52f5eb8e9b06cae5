// Package model defines the typed field and record structures shared by the
// schema loader, the validation engine, the form controllers and the
// renderers. Field schemas are declarative: validation rules carry a canonical
// kind (see the RuleKind* constants), an optional string parameter and the
// message surfaced to users when the rule fails. Records are plain maps keyed
// by field name so they serialise cleanly into session stores and templates.
package model
