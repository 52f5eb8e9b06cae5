package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goliatone/go-formflow/internal/app"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	formID := flag.String("form", "", "form to fill in (prompted when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// Sessions stay in memory for a single terminal run.
	cfg.Redis.Enabled = false

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to assemble app: %v", err)
	}
	defer a.Close()

	runner := tui.New()
	ctx := context.Background()

	id := *formID
	if id == "" {
		if id, err = chooseForm(ctx, runner, a.Forms); err != nil {
			exit(err)
		}
	}
	f, ok := a.Forms.Form(id)
	if !ok {
		log.Fatalf("Unknown form %q", id)
	}

	receipt, err := run(ctx, runner, a, f)
	if err != nil {
		exit(err)
	}
	fmt.Printf("%s (%s)\n", receipt.Message, receipt.ID)
}

func chooseForm(ctx context.Context, runner *tui.Runner, forms *schema.Registry) (string, error) {
	ids := forms.Forms()
	if len(ids) == 1 {
		return ids[0], nil
	}
	return runner.Choose(ctx, "Which form?", ids)
}

func run(ctx context.Context, runner *tui.Runner, a *app.App, f schema.Form) (submission.Receipt, error) {
	if f.Mode == schema.ModeWizard {
		w, err := wizard.New(f, a.Engine, wizard.WithPendingTTL(a.Config.Wizard.PendingTTL))
		if err != nil {
			return submission.Receipt{}, err
		}
		session, err := wizard.NewSession(w, wizard.NewMemoryStore(), a.Sink)
		if err != nil {
			return submission.Receipt{}, err
		}
		return runner.RunWizard(ctx, session)
	}
	ctrl, err := form.NewController(f, a.Engine, a.Sink)
	if err != nil {
		return submission.Receipt{}, err
	}
	return runner.RunForm(ctx, ctrl)
}

func exit(err error) {
	if errors.Is(err, tui.ErrAborted) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		os.Exit(130)
	}
	log.Fatalf("Failed: %v", err)
}
