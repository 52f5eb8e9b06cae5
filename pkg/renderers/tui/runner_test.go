package tui_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// scriptedDriver answers prompts from a queue and records what it was asked.
type scriptedDriver struct {
	answers []any
	asked   []string
	infos   []string
}

func (d *scriptedDriver) next(message string) (any, error) {
	d.asked = append(d.asked, message)
	if len(d.answers) == 0 {
		return nil, fmt.Errorf("%w for %q", tui.ErrNoAnswer, message)
	}
	answer := d.answers[0]
	d.answers = d.answers[1:]
	return answer, nil
}

func (d *scriptedDriver) text(message string) (string, error) {
	answer, err := d.next(message)
	if err != nil {
		return "", err
	}
	return answer.(string), nil
}

func (d *scriptedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	text, err := d.text(cfg.Message)
	if err == nil && cfg.Validator != nil {
		err = cfg.Validator(text)
	}
	return text, err
}

func (d *scriptedDriver) Password(_ context.Context, cfg tui.InputConfig) (string, error) {
	return d.text(cfg.Message)
}

func (d *scriptedDriver) TextArea(_ context.Context, cfg tui.TextAreaConfig) (string, error) {
	return d.text(cfg.Message)
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	answer, err := d.next(cfg.Message)
	if err != nil {
		return false, err
	}
	return answer.(bool), nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	answer, err := d.next(cfg.Message)
	if err != nil {
		return 0, err
	}
	return slices.Index(cfg.Options, answer.(string)), nil
}

func (d *scriptedDriver) MultiSelect(_ context.Context, cfg tui.SelectConfig) ([]int, error) {
	answer, err := d.next(cfg.Message)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, value := range answer.([]string) {
		out = append(out, slices.Index(cfg.Options, value))
	}
	return out, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

type captureSink struct {
	got []submission.Submission
}

func (s *captureSink) Submit(_ context.Context, sub submission.Submission) (submission.Receipt, error) {
	s.got = append(s.got, sub)
	return submission.Receipt{ID: sub.ID, Message: submission.DefaultConfirmation}, nil
}

func newEngine() *validation.Engine {
	return validation.New(
		validation.WithClock(testsupport.Clock(testsupport.Today)),
		validation.WithChecker("email", uniqueness.NewStub(uniqueness.WithDelay(0))),
	)
}

func TestRunner_Wizard(t *testing.T) {
	w, err := wizard.New(testsupport.Form(t, "onboarding"), newEngine(), wizard.WithClock(testsupport.Clock(testsupport.Today)))
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	sink := &captureSink{}
	session, err := wizard.NewSession(w, wizard.NewMemoryStore(), sink)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &scriptedDriver{answers: []any{
		"Al", "Alan Turing",
		"test@example.com", "alan@example.com",
		"1990-01-01",
		"Demo", "Medium",
		"Back",
		"Alan Turing", "alan@example.com", "1990-01-01",
		"Demo", "Medium", "Next",
		"Cobol#1959", "Cobol#1959", true,
		"Submit",
	}}
	runner := tui.New(tui.WithPromptDriver(driver), tui.WithTheme(tui.Theme{ErrorPrefix: "! "}))

	receipt, err := runner.RunWizard(context.Background(), session)
	if err != nil {
		t.Fatalf("run wizard: %v (asked %v)", err, driver.asked)
	}
	if receipt.Message != submission.DefaultConfirmation {
		t.Fatalf("unexpected receipt %#v", receipt)
	}
	if len(driver.answers) != 0 {
		t.Fatalf("unused answers %v", driver.answers)
	}
	if len(sink.got) != 1 {
		t.Fatalf("expected one submission, got %d", len(sink.got))
	}
	record := sink.got[0].Record
	if record["email"] != "alan@example.com" || record["riskTolerance"] != "Medium" {
		t.Fatalf("unexpected record %#v", record)
	}
	for _, message := range driver.asked {
		if strings.HasPrefix(message, "PAN") {
			t.Fatalf("hidden PAN field was prompted")
		}
	}

	for _, want := range []string{
		"Step 1 of 3: Personal Details",
		"! Full name must have at least 3 characters",
		"! Email already taken",
		"Step 3 of 3: Security",
		submission.DefaultConfirmation,
	} {
		if !slices.Contains(driver.infos, want) {
			t.Errorf("missing message %q in %v", want, driver.infos)
		}
	}
}

func TestRunner_Form(t *testing.T) {
	sink := &captureSink{}
	controller, err := form.NewController(testsupport.Form(t, "freelance"), newEngine(), sink)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	driver := &scriptedDriver{answers: []any{
		"Ada Lovelace", "ada@example.com", "analytical",
		"17", "30",
		"Developer", []string{"Node.js", "React"}, "senior", true,
		"2024-07-01", "40",
		"I write programs for engines.",
		"me.png",
		false,
	}}
	inspected := []string{}
	runner := tui.New(
		tui.WithPromptDriver(driver),
		tui.WithFileInspector(func(path string) (model.FileHandle, error) {
			inspected = append(inspected, path)
			return model.FileHandle{Name: path, Size: 1024, MIMEType: "image/png"}, nil
		}),
	)

	receipt, err := runner.RunForm(context.Background(), controller)
	if err != nil {
		t.Fatalf("run form: %v (asked %v)", err, driver.asked)
	}
	if receipt.ID == "" {
		t.Fatalf("expected receipt id")
	}
	if diff := cmp.Diff([]string{"me.png"}, inspected); diff != "" {
		t.Fatalf("inspected mismatch (-want +got):\n%s", diff)
	}
	if !slices.Contains(driver.infos, "✗ Age must be at least 18") {
		t.Fatalf("age error not shown: %v", driver.infos)
	}

	record := sink.got[0].Record
	want := model.Record{
		"fullName":        "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "analytical",
		"age":             float64(30),
		"role":            "Developer",
		"skills":          []string{"Node.js", "React"},
		"experienceLevel": "senior",
		"remoteWork":      true,
		"startDate":       "2024-07-01",
		"hoursPerWeek":    float64(40),
		"bio":             "I write programs for engines.",
		"profileImage":    []model.FileHandle{{Name: "me.png", Size: 1024, MIMEType: "image/png"}},
		"newsletter":      false,
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	for _, message := range driver.asked {
		if strings.HasPrefix(message, "Profile Image") && !strings.Contains(message, "comma separated") {
			t.Fatalf("file prompt missing hint: %q", message)
		}
	}
}

func TestRunner_Aborted(t *testing.T) {
	controller, err := form.NewController(testsupport.Form(t, "freelance"), newEngine(), &captureSink{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	driver := &scriptedDriver{}

	_, err = tui.New(tui.WithPromptDriver(driver)).RunForm(context.Background(), controller)
	if !errors.Is(err, tui.ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer, got %v", err)
	}
}

func TestRunner_Choose(t *testing.T) {
	driver := &scriptedDriver{answers: []any{"onboarding", "missing"}}
	runner := tui.New(tui.WithPromptDriver(driver))
	options := []string{"freelance", "onboarding"}

	got, err := runner.Choose(context.Background(), "Which form?", options)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got != "onboarding" {
		t.Fatalf("expected onboarding, got %q", got)
	}
	if _, err := runner.Choose(context.Background(), "Which form?", options); !errors.Is(err, tui.ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer for unknown option, got %v", err)
	}
}
