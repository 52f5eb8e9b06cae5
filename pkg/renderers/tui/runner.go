// Package tui runs forms interactively in a terminal. Fields are prompted in
// schema order, validated on entry the way the browser validates on blur, and
// re-prompted until they pass.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// Theme holds prefixes applied to runner messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme is used when no theme is configured.
var DefaultTheme = Theme{InfoPrefix: "", ErrorPrefix: "✗ "}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithFileInspector replaces the function that turns a path typed at a file
// prompt into a FileHandle.
func WithFileInspector(fn func(path string) (model.FileHandle, error)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.inspect = fn
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner drives form controllers and wizard sessions through a PromptDriver.
type Runner struct {
	driver  PromptDriver
	theme   Theme
	inspect func(path string) (model.FileHandle, error)
	logger  *zap.Logger
}

// New builds a runner. Without WithPromptDriver it prompts on the process
// terminal.
func New(options ...Option) *Runner {
	r := &Runner{
		driver:  NewSurveyDriver(),
		theme:   DefaultTheme,
		inspect: InspectFile,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunForm fills and submits a single-page form.
func (r *Runner) RunForm(ctx context.Context, c *form.Controller) (submission.Receipt, error) {
	f := c.Form()
	st := c.Start()
	if err := r.info(ctx, f.Title); err != nil {
		return submission.Receipt{}, err
	}

	names := f.Schema().FieldNames()
	for {
		for _, name := range names {
			field, _ := f.Schema().Field(name)
			var err error
			st, err = r.fillFormField(ctx, c, st, field)
			if err != nil {
				return submission.Receipt{}, err
			}
		}

		next, outcome, err := c.Submit(ctx, st)
		if err == nil {
			return outcome.Receipt, r.info(ctx, outcome.Receipt.Message)
		}
		if !errors.Is(err, form.ErrSubmissionBlocked) {
			return submission.Receipt{}, err
		}
		st = next
		names = failing(f.Schema().FieldNames(), st.Errors)
		r.logger.Debug("re-prompting failed fields", zap.Strings("fields", names))
	}
}

func (r *Runner) fillFormField(ctx context.Context, c *form.Controller, st formstate.State, field model.FieldSchema) (formstate.State, error) {
	for {
		if !visible(field, st.Values) {
			return st, nil
		}
		if err := r.problem(ctx, st.ErrorFor(field.Name)); err != nil {
			return st, err
		}
		value, err := r.Ask(ctx, field, st.Values[field.Name])
		if err != nil {
			return st, err
		}
		if st, err = c.Change(ctx, st, field.Name, value); err != nil {
			return st, err
		}
		if st, err = c.Blur(ctx, st, field.Name); err != nil {
			return st, err
		}
		if st.ErrorFor(field.Name) == "" {
			return st, nil
		}
	}
}

// RunWizard walks a new wizard session to submission.
func (r *Runner) RunWizard(ctx context.Context, s *wizard.Session) (submission.Receipt, error) {
	w := s.Wizard()
	id, st, err := s.Start(ctx)
	if err != nil {
		return submission.Receipt{}, err
	}
	r.logger.Debug("wizard session started", zap.String("session", id))

	for {
		part, _ := w.Form().Part(st.Step)
		if err := r.info(ctx, fmt.Sprintf("Step %d of %d: %s", st.Step+1, w.Steps(), part.Title)); err != nil {
			return submission.Receipt{}, err
		}
		for _, name := range w.StepFields(st.Step) {
			field, _ := w.Form().Schema().Field(name)
			if st, err = r.fillWizardField(ctx, s, id, st, field); err != nil {
				return submission.Receipt{}, err
			}
		}

		back := false
		if st.Step > 0 {
			if back, err = r.chooseBack(ctx, st.Step == w.LastStep()); err != nil {
				return submission.Receipt{}, err
			}
		}

		switch {
		case back:
			st, err = s.Retreat(ctx, id)
		case st.Step == w.LastStep():
			var receipt submission.Receipt
			st, receipt, err = s.Submit(ctx, id)
			if err == nil {
				return receipt, r.info(ctx, receipt.Message)
			}
		default:
			st, err = s.Advance(ctx, id)
		}
		if err != nil && !errors.Is(err, wizard.ErrSubmissionBlocked) {
			return submission.Receipt{}, err
		}
	}
}

func (r *Runner) fillWizardField(ctx context.Context, s *wizard.Session, id string, st wizard.State, field model.FieldSchema) (wizard.State, error) {
	for {
		if !visible(field, st.Values) {
			return st, nil
		}
		if err := r.problem(ctx, st.ErrorFor(field.Name)); err != nil {
			return st, err
		}
		value, err := r.Ask(ctx, field, st.Values[field.Name])
		if err != nil {
			return st, err
		}
		if st, err = s.Apply(ctx, id, model.Record{field.Name: value}); err != nil {
			return st, err
		}
		if st, err = s.Blur(ctx, id, field.Name); err != nil {
			return st, err
		}
		if st.ErrorFor(field.Name) == "" {
			return st, nil
		}
	}
}

// Choose asks for one of options and returns it.
func (r *Runner) Choose(ctx context.Context, message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoAnswer
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: options})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return "", ErrNoAnswer
	}
	return options[idx], nil
}

func (r *Runner) chooseBack(ctx context.Context, last bool) (bool, error) {
	forward := "Next"
	if last {
		forward = "Submit"
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message: "Continue",
		Options: []string{forward, "Back"},
	})
	if err != nil {
		return false, err
	}
	return idx == 1, nil
}

// Ask prompts for one field and returns the value in the Go type the
// validation engine expects for it.
func (r *Runner) Ask(ctx context.Context, field model.FieldSchema, current any) (any, error) {
	message := field.DisplayLabel()
	if field.Required {
		message += " *"
	}

	switch field.Type {
	case model.FieldTypeBoolean:
		checked, _ := current.(bool)
		return r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: checked, Help: field.Help})

	case model.FieldTypeEnum:
		text, _ := current.(string)
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      field.Options,
			DefaultIndex: slices.Index(field.Options, text),
			Help:         field.Help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", nil
		}
		return field.Options[idx], nil

	case model.FieldTypeMultiSelect:
		selected, _ := current.([]string)
		var defaults []int
		for _, value := range selected {
			if idx := slices.Index(field.Options, value); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Options:  field.Options,
			Defaults: defaults,
			Help:     field.Help,
		})
		if err != nil {
			return nil, err
		}
		return append([]string{}, pick(field.Options, indices)...), nil

	case model.FieldTypeNumber:
		text, err := r.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   numberText(current),
			Help:      field.Help,
			Validator: numeric,
		})
		if err != nil {
			return nil, err
		}
		return form.DecodeField(field, []string{text}), nil

	case model.FieldTypeFile:
		text, err := r.driver.Input(ctx, InputConfig{
			Message: message + " (file paths, comma separated)",
			Help:    field.Help,
		})
		if err != nil {
			return nil, err
		}
		return r.files(text)
	}

	text, _ := current.(string)
	switch field.Widget {
	case "password":
		return r.driver.Password(ctx, InputConfig{Message: message, Help: field.Help})
	case "textarea":
		return r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: text, Help: field.Help})
	default:
		return r.driver.Input(ctx, InputConfig{Message: message, Default: text, Help: field.Help})
	}
}

func (r *Runner) files(text string) ([]model.FileHandle, error) {
	handles := []model.FileHandle{}
	for _, path := range strings.Split(text, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		handle, err := r.inspect(path)
		if err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (r *Runner) info(ctx context.Context, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Runner) problem(ctx context.Context, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func visible(field model.FieldSchema, values model.Record) bool {
	if field.VisibleWhen == "" {
		return true
	}
	expr, err := condition.Compile(field.VisibleWhen)
	if err != nil {
		return true
	}
	return expr.Eval(values)
}

func failing(names []string, errs map[string]string) []string {
	var out []string
	for _, name := range names {
		if errs[name] != "" {
			out = append(out, name)
		}
	}
	return out
}

func numeric(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return errors.New("enter a number")
	}
	return nil
}

func numberText(value any) string {
	if n, ok := value.(float64); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}
