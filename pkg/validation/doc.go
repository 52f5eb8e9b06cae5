// Package validation checks form records against schema definitions.
//
// Synchronous rules are evaluated with go-playground/validator single-value
// checks (plus a few registered tags for dates, ages and files). Asynchronous
// rules such as uniqueness are delegated to named Checkers and only run once
// a field's synchronous rules pass. Cross-field refinements run last and only
// populate paths that have no field-level error.
//
//	engine := validation.New(
//		validation.WithChecker("email", uniqueness.NewStub()),
//	)
//	result, err := engine.Validate(ctx, form.Schema(), record)
//	if err != nil {
//		return err // checker failure, not a validation message
//	}
//	if !result.Valid() {
//		render(result.Errors)
//	}
package validation
