package validation

import "context"

// Checker performs an asynchronous check for a rule of kind unique. It
// returns true when value is acceptable. Errors are infrastructure failures
// and abort validation.
type Checker interface {
	Check(ctx context.Context, value string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, value string) (bool, error)

// Check implements Checker.
func (fn CheckerFunc) Check(ctx context.Context, value string) (bool, error) {
	return fn(ctx, value)
}
