package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig configures a single line prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // multi-select only; indices into Options
	Help         string
	PageSize     int
}

// TextAreaConfig configures a multi-line prompt.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver abstracts the terminal so the runner can be driven by tests.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// SurveyDriver implements PromptDriver on github.com/AlecAivazis/survey.
type SurveyDriver struct {
	opts []survey.AskOpt
	out  io.Writer
}

// NewSurveyDriver returns a driver bound to the process stdio.
func NewSurveyDriver() *SurveyDriver {
	return &SurveyDriver{out: os.Stdout}
}

// NewSurveyDriverWithStdio binds prompts to the given streams.
func NewSurveyDriverWithStdio(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) *SurveyDriver {
	return &SurveyDriver{
		opts: []survey.AskOpt{survey.WithStdio(in, out, errOut)},
		out:  out,
	}
}

func (d *SurveyDriver) ask(prompt survey.Prompt, response any, extra ...survey.AskOpt) error {
	opts := append(slices.Clone(d.opts), extra...)
	if err := survey.AskOne(prompt, response, opts...); err != nil {
		return translateSurveyErr(err)
	}
	return nil
}

func (d *SurveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := d.ask(prompt, &out, validatorOpts(cfg.Validator)...); err != nil {
		return "", err
	}
	return out, nil
}

func (d *SurveyDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Password{Message: cfg.Message, Help: cfg.Help}
	if err := d.ask(prompt, &out, validatorOpts(cfg.Validator)...); err != nil {
		return "", err
	}
	return out, nil
}

func (d *SurveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := d.ask(prompt, &out); err != nil {
		return false, err
	}
	return out, nil
}

func (d *SurveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := d.ask(prompt, &out); err != nil {
		return 0, err
	}
	return slices.Index(cfg.Options, out), nil
}

func (d *SurveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if len(cfg.Defaults) > 0 {
		prompt.Default = pick(cfg.Options, cfg.Defaults)
	}
	if err := d.ask(prompt, &out); err != nil {
		return nil, err
	}
	return indicesOf(cfg.Options, out), nil
}

func (d *SurveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := d.ask(prompt, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (d *SurveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func validatorOpts(fn func(string) error) []survey.AskOpt {
	if fn == nil {
		return nil
	}
	return []survey.AskOpt{survey.WithValidator(func(ans any) error {
		text, _ := ans.(string)
		return fn(text)
	})}
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func indicesOf(options, values []string) []int {
	var out []int
	for i, option := range options {
		if slices.Contains(values, option) {
			out = append(out, i)
		}
	}
	return out
}

func pick(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
