// Package wizard sequences a multi-part form one step at a time. Every
// transition is a function from State to State; the Wizard itself holds only
// configuration. Validation is two-phase so a slow asynchronous check can run
// outside any lock:
//
//	st, token, err := w.Begin(st, wizard.IntentAdvance, "")
//	result, err := w.Validate(ctx, st)
//	st, err = w.Resolve(st, token, result)
//
// Resolve discards results whose token is no longer the latest issued.
package wizard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// DefaultPendingTTL bounds how long a pending flag blocks other intents.
const DefaultPendingTTL = 30 * time.Second

// Option configures a Wizard.
type Option func(*Wizard)

// WithClock overrides the wizard clock.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// WithPendingTTL sets how long a pending validation blocks other intents.
// Older pending flags are treated as abandoned.
func WithPendingTTL(ttl time.Duration) Option {
	return func(w *Wizard) {
		if ttl > 0 {
			w.pendingTTL = ttl
		}
	}
}

// WithLogger sets the wizard logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Wizard runs the step state machine for one form.
type Wizard struct {
	form       schema.Form
	engine     *validation.Engine
	now        func() time.Time
	pendingTTL time.Duration
	logger     *zap.Logger
}

// New builds a wizard over the form's parts.
func New(form schema.Form, engine *validation.Engine, options ...Option) (*Wizard, error) {
	if engine == nil {
		return nil, fmt.Errorf("wizard: %s: validation engine is required", form.ID)
	}
	if len(form.Parts) == 0 {
		return nil, fmt.Errorf("wizard: %s: form has no steps", form.ID)
	}
	w := &Wizard{
		form:       form,
		engine:     engine,
		now:        time.Now,
		pendingTTL: DefaultPendingTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Form returns the wizard's form.
func (w *Wizard) Form() schema.Form {
	return w.form
}

// Steps returns the number of steps.
func (w *Wizard) Steps() int {
	return len(w.form.Parts)
}

// LastStep returns the index of the final step.
func (w *Wizard) LastStep() int {
	return len(w.form.Parts) - 1
}

// StepFields returns the fields owned by step i.
func (w *Wizard) StepFields(i int) []string {
	part, ok := w.form.Part(i)
	if !ok {
		return nil
	}
	return part.FieldNames()
}

// Start returns the initial state: step 0 with the form defaults.
func (w *Wizard) Start() State {
	return State{
		State: formstate.New(w.form.Schema().Defaults()),
		Form:  w.form.ID,
	}
}

// Restore re-types values decoded from JSON (for example lists as []any)
// into the Go types the validation engine expects.
func (w *Wizard) Restore(st State) State {
	s := w.form.Schema()
	next := st
	next.Values = form.Normalize(s, st.Values)
	if st.Accepted != nil {
		next.Accepted = form.Normalize(s, st.Accepted)
	}
	return next
}

// IsPending reports whether st has a validation in flight that has not
// outlived the pending TTL.
func (w *Wizard) IsPending(st State) bool {
	if !st.Pending {
		return false
	}
	return w.now().Sub(st.PendingSince) < w.pendingTTL
}

// Apply stores new input values. Inputs are rejected while a validation is
// pending.
func (w *Wizard) Apply(st State, values model.Record) (State, error) {
	if err := w.guard(st); err != nil {
		return st, err
	}
	s := w.form.Schema()
	for name := range values {
		if _, ok := s.Field(name); !ok {
			return st, fmt.Errorf("%w %q", ErrUnknownField, name)
		}
	}
	next := st.Clone()
	next.Update(values)
	return next, nil
}

// Begin marks a validation as pending and issues its token. target names the
// field for IntentField.
func (w *Wizard) Begin(st State, intent Intent, target string) (State, uint64, error) {
	if err := w.guard(st); err != nil {
		return st, 0, err
	}
	switch intent {
	case IntentAdvance:
	case IntentSubmit:
		if st.Step != w.LastStep() {
			return st, 0, ErrNotFinalStep
		}
	case IntentField:
		if _, ok := w.form.Schema().Field(target); !ok {
			return st, 0, fmt.Errorf("%w %q", ErrUnknownField, target)
		}
	default:
		return st, 0, fmt.Errorf("wizard: unknown intent %q", intent)
	}

	next := st.Clone()
	next.Token++
	next.Pending = true
	next.PendingSince = w.now()
	next.Intent = intent
	next.Target = target
	return next, next.Token, nil
}

// Validate runs the validation described by the pending intent. It reads st
// and never modifies it.
func (w *Wizard) Validate(ctx context.Context, st State) (validation.Result, error) {
	s := w.form.Schema()
	var (
		result validation.Result
		err    error
	)
	switch st.Intent {
	case IntentAdvance:
		result, err = w.engine.ValidateFields(ctx, s, st.Values, w.StepFields(st.Step)...)
	case IntentSubmit:
		result, err = w.engine.Validate(ctx, s, st.Values)
	case IntentField:
		result, err = w.engine.ValidateFields(ctx, s, st.Values, st.Target)
	default:
		return validation.Result{}, ErrNoPendingValidation
	}
	if err != nil {
		return validation.Result{}, fmt.Errorf("wizard: %s: validate: %w", w.form.ID, err)
	}
	return result, nil
}

// Resolve applies the result of the validation issued with token. Results
// for any other token are discarded with ErrStaleValidation and st is
// returned unchanged.
func (w *Wizard) Resolve(st State, token uint64, result validation.Result) (State, error) {
	if token != st.Token {
		w.logger.Debug("discarding stale validation",
			zap.String("form", st.Form),
			zap.Uint64("token", token),
			zap.Uint64("latest", st.Token),
		)
		return st, ErrStaleValidation
	}
	if !st.Pending {
		return st, ErrNoPendingValidation
	}

	next := st.Clone()
	intent, target := next.Intent, next.Target
	next.clearPending()

	switch intent {
	case IntentField:
		next.Record([]string{target}, result)
		return next, nil

	case IntentAdvance:
		next.Record(w.StepFields(next.Step), result)
		if !result.Valid() {
			return next, ErrSubmissionBlocked
		}
		next.Accepted = next.Accepted.Merge(result.Value)
		if next.Step < w.LastStep() {
			next.Step++
		}
		next.Focus = ""
		return next, nil

	case IntentSubmit:
		next.Record(w.form.Schema().FieldNames(), result)
		if !result.Valid() {
			next.Step = w.stepOf(result.FirstInvalid(), next.Step)
			return next, ErrSubmissionBlocked
		}
		next.Accepted = result.Value
		next.Submitted = true
		next.Focus = ""
		return next, nil

	default:
		return st, ErrNoPendingValidation
	}
}

// Abort clears a pending validation issued with token, for example after a
// checker failure. Other tokens are ignored.
func (w *Wizard) Abort(st State, token uint64) State {
	if token != st.Token || !st.Pending {
		return st
	}
	next := st.Clone()
	next.clearPending()
	return next
}

// Run performs Begin, Validate and Resolve in sequence.
func (w *Wizard) Run(ctx context.Context, st State, intent Intent, target string) (State, error) {
	pending, token, err := w.Begin(st, intent, target)
	if err != nil {
		return st, err
	}
	result, err := w.Validate(ctx, pending)
	if err != nil {
		return w.Abort(pending, token), err
	}
	return w.Resolve(pending, token, result)
}

// Advance validates the current step's fields and moves forward when they
// all pass. On failure the step is unchanged, errors are surfaced and focus
// moves to the first failing field.
func (w *Wizard) Advance(ctx context.Context, st State) (State, error) {
	return w.Run(ctx, st, IntentAdvance, "")
}

// Blur validates a single field.
func (w *Wizard) Blur(ctx context.Context, st State, field string) (State, error) {
	return w.Run(ctx, st, IntentField, field)
}

// Submit validates the whole record from the final step. On success the
// state is marked submitted and Accepted holds the full record.
func (w *Wizard) Submit(ctx context.Context, st State) (State, error) {
	return w.Run(ctx, st, IntentSubmit, "")
}

// Retreat moves back one step without validating. Values are kept. It is a
// no-op on the first step.
func (w *Wizard) Retreat(st State) (State, error) {
	if err := w.guard(st); err != nil {
		return st, err
	}
	if st.Step == 0 {
		return st, nil
	}
	next := st.Clone()
	next.Step--
	next.Focus = ""
	return next, nil
}

func (w *Wizard) guard(st State) error {
	if st.Submitted {
		return ErrAlreadySubmitted
	}
	if w.IsPending(st) {
		return ErrValidationPending
	}
	return nil
}

func (w *Wizard) stepOf(field string, fallback int) int {
	for i := range w.form.Parts {
		for _, name := range w.StepFields(i) {
			if name == field {
				return i
			}
		}
	}
	return fallback
}
