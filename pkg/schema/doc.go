// Package schema holds declarative form definitions. A Form is an ordered
// list of Parts; each Part is a partial schema (fields plus cross-field
// refinements). Single-page forms render parts as sections, wizards render one
// part per step, and Compose merges parts into the Schema the validation
// engine consumes.
//
// Definitions are usually loaded from YAML or JSON documents via LoadFS:
//
//	forms:
//	  onboarding:
//	    title: Onboarding Form
//	    mode: wizard
//	    parts: [personal, account, security]
//	parts:
//	  security:
//	    title: Security
//	    fields:
//	      - name: password
//	        type: string
//	        rules:
//	          - { kind: minLength, value: "8", message: "Password must have at least 8 characters" }
//	    refinements:
//	      - { kind: matches, path: confirmPassword, field: password, message: "Passwords do not match" }
package schema
