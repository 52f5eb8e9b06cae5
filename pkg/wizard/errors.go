package wizard

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/submission"
)

var (
	// ErrSubmissionBlocked is returned when an advance or submit cannot
	// proceed: fields failed validation, the wizard is not on its final step,
	// or a validation is still pending.
	ErrSubmissionBlocked = submission.ErrBlocked
	// ErrValidationPending is returned for intents issued while an
	// asynchronous validation is in flight.
	ErrValidationPending = fmt.Errorf("%w: validation pending", ErrSubmissionBlocked)
	// ErrNotFinalStep is returned by Submit before the last step.
	ErrNotFinalStep = fmt.Errorf("%w: not on the final step", ErrSubmissionBlocked)
	// ErrAlreadySubmitted is returned for intents on a submitted wizard.
	ErrAlreadySubmitted = errors.New("wizard: already submitted")
	// ErrStaleValidation is returned when a validation result arrives for a
	// token that is no longer the latest issued.
	ErrStaleValidation = errors.New("wizard: stale validation result")
	// ErrNoPendingValidation is returned by Resolve when nothing is pending.
	ErrNoPendingValidation = errors.New("wizard: no pending validation")
	// ErrUnknownField is returned when an intent names a field the form does
	// not declare.
	ErrUnknownField = errors.New("wizard: unknown field")
	// ErrSessionNotFound is returned by stores for unknown session ids.
	ErrSessionNotFound = errors.New("wizard: session not found")
)
