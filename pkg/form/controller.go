// Package form drives single-page forms: fields validate on blur, re-validate
// on change once they have been validated, and the whole schema validates on
// submit. A successful submit hands the record to a sink and resets the state
// to the form defaults.
package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/validation"
)

var (
	// ErrUnknownField is returned when an intent names a field the form does
	// not declare.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrSubmissionBlocked is returned by Submit when validation fails.
	ErrSubmissionBlocked = submission.ErrBlocked
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used to timestamp submissions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller runs the intents of a single-page form. It holds no per-user
// state and is safe for concurrent use.
type Controller struct {
	form   schema.Form
	engine *validation.Engine
	sink   submission.Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewController binds a form to an engine and a sink.
func NewController(form schema.Form, engine *validation.Engine, sink submission.Sink, options ...Option) (*Controller, error) {
	if engine == nil {
		return nil, fmt.Errorf("form: %s: validation engine is required", form.ID)
	}
	if sink == nil {
		return nil, fmt.Errorf("form: %s: submission sink is required", form.ID)
	}
	c := &Controller{
		form:   form,
		engine: engine,
		sink:   sink,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Form returns the controlled form.
func (c *Controller) Form() schema.Form {
	return c.form
}

// Start returns a fresh state seeded with the form defaults.
func (c *Controller) Start() formstate.State {
	return formstate.New(c.form.Schema().Defaults())
}

// Change stores a new value. Fields that were already validated are checked
// again so their message tracks the input.
func (c *Controller) Change(ctx context.Context, state formstate.State, name string, value any) (formstate.State, error) {
	if _, ok := c.form.Schema().Field(name); !ok {
		return state, fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	next := state.Clone()
	next.Set(name, normalizeSelection(value))
	if !next.WasValidated(name) {
		return next, nil
	}
	return c.validateFields(ctx, next, name)
}

// Blur validates a single field.
func (c *Controller) Blur(ctx context.Context, state formstate.State, name string) (formstate.State, error) {
	if _, ok := c.form.Schema().Field(name); !ok {
		return state, fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	return c.validateFields(ctx, state.Clone(), name)
}

// Outcome describes a submit attempt.
type Outcome struct {
	Result  validation.Result
	Receipt submission.Receipt
}

// Submit validates the whole schema. On failure the returned state carries
// every error and ErrSubmissionBlocked is returned. On success the record is
// sent to the sink and the state is reset to defaults.
func (c *Controller) Submit(ctx context.Context, state formstate.State) (formstate.State, Outcome, error) {
	s := c.form.Schema()
	result, err := c.engine.Validate(ctx, s, state.Values)
	if err != nil {
		return state, Outcome{}, fmt.Errorf("form: %s: validate: %w", c.form.ID, err)
	}

	next := state.Clone()
	next.Record(s.FieldNames(), result)
	if !result.Valid() {
		c.logger.Debug("submit blocked", zap.String("form", c.form.ID), zap.Int("errors", len(result.Errors)))
		return next, Outcome{Result: result}, ErrSubmissionBlocked
	}

	receipt, err := c.sink.Submit(ctx, submission.New(s, result.Value, c.now()))
	if err != nil {
		return next, Outcome{Result: result}, fmt.Errorf("form: %s: submit: %w", c.form.ID, err)
	}
	c.logger.Info("form submitted", zap.String("form", c.form.ID), zap.String("id", receipt.ID))
	return c.Start(), Outcome{Result: result, Receipt: receipt}, nil
}

func (c *Controller) validateFields(ctx context.Context, state formstate.State, names ...string) (formstate.State, error) {
	result, err := c.engine.ValidateFields(ctx, c.form.Schema(), state.Values, names...)
	if err != nil {
		return state, fmt.Errorf("form: %s: validate: %w", c.form.ID, err)
	}
	state.Record(names, result)
	return state, nil
}

func normalizeSelection(value any) any {
	if values, ok := value.([]string); ok {
		return Selection(values)
	}
	return value
}
