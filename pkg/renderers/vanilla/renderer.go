// Package vanilla renders form views as server-side HTML with a small
// progressive enhancement script for blur validation and conditional fields.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
)

// Name is the registry key of the renderer.
const Name = "vanilla"

// DefaultAssetsPath is the URL prefix the page uses for its stylesheet and
// script.
const DefaultAssetsPath = "/assets"

type Option func(*config)

type config struct {
	templates  fs.FS
	engine     template.Engine
	assetsPath string
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.templates = os.DirFS(path)
		}
	}
}

// WithEngine injects a template engine instead of the pongo2 default.
func WithEngine(engine template.Engine) Option {
	return func(cfg *config) {
		if engine != nil {
			cfg.engine = engine
		}
	}
}

// WithAssetsPath overrides DefaultAssetsPath.
func WithAssetsPath(path string) Option {
	return func(cfg *config) {
		cfg.assetsPath = strings.TrimRight(strings.TrimSpace(path), "/")
	}
}

// Renderer implements render.Renderer for HTML pages.
type Renderer struct {
	templates template.Engine
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templates:  TemplatesFS(),
		assetsPath: DefaultAssetsPath,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	engine := cfg.engine
	if engine == nil {
		built, err := pongo.New(pongo.WithFS(cfg.templates))
		if err != nil {
			return nil, fmt.Errorf("vanilla: configure templates: %w", err)
		}
		engine = built
	}
	if err := engine.GlobalContext(map[string]any{
		"assets": map[string]any{
			"stylesheet": cfg.assetsPath + "/" + StylesheetName,
			"script":     cfg.assetsPath + "/" + ScriptName,
		},
	}); err != nil {
		return nil, fmt.Errorf("vanilla: %w", err)
	}

	return &Renderer{templates: engine}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws a full HTML page for the view.
func (r *Renderer) Render(_ context.Context, view render.View) ([]byte, error) {
	out, err := r.templates.RenderTemplate("page", view)
	if err != nil {
		return nil, fmt.Errorf("vanilla: render %s: %w", view.FormID, err)
	}
	return []byte(out), nil
}
