// Package pongo implements template.Engine with a pongo2 template set.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formflow/pkg/render/template"
)

// DefaultExtension is appended to template names that carry no extension.
const DefaultExtension = ".tpl"

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir   string
	templates fs.FS
	extension string
	globals   map[string]any
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS. Embedded templates use this.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.extension = ext
	}
}

// WithGlobals seeds values visible to every template.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// Engine is a pongo2-backed template.Engine. Parsed templates are cached by
// path.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	extension string
}

var _ template.Engine = (*Engine)(nil)

// New builds an engine. At least one template source is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: DefaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("pongo: a base dir or fs.FS is required")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("pongo: local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}

	registerFilters()

	engine := &Engine{
		set:       pongo2.NewSet("formflow", loaders...),
		templates: make(map[string]*pongo2.Template),
		extension: cfg.extension,
	}
	if len(cfg.globals) > 0 {
		if err := engine.GlobalContext(cfg.globals); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// RenderTemplate renders the template stored under name.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("pongo: engine is nil")
	}
	path := name
	if !strings.HasSuffix(path, e.extension) {
		path += e.extension
	}
	tmpl, err := e.lookup(path)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, path, data, out)
}

// RenderString parses content and renders it. Inline templates are not
// cached.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("pongo: engine is nil")
	}
	tmpl, err := e.set.FromString(content)
	if err != nil {
		return "", fmt.Errorf("pongo: parse inline template: %w", err)
	}
	return e.execute(tmpl, "inline", data, out)
}

// RegisterFilter exposes fn as a pongo2 filter. Filters are process-wide, so
// registering an existing name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("pongo: filter name and function are required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var arg any
		if param != nil {
			arg = param.Interface()
		}
		result, err := fn(in.Interface(), arg)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// GlobalContext merges data into the globals of the template set.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.set == nil {
		return errors.New("pongo: engine is nil")
	}
	if data == nil {
		return nil
	}
	ctx, err := toContext(data)
	if err != nil {
		return fmt.Errorf("pongo: global context: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set.Globals == nil {
		e.set.Globals = make(pongo2.Context)
	}
	e.set.Globals.Update(ctx)
	return nil
}

func (e *Engine) execute(tmpl *pongo2.Template, name string, data any, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("pongo: convert data: %w", err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("pongo: execute %q: %w", name, err)
	}

	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (e *Engine) lookup(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.templates[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("pongo: load %q: %w", path, err)
	}
	e.templates[path] = tmpl
	return tmpl, nil
}

// toContext flattens data into plain maps through its JSON form so templates
// address fields by their json tags.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("template data must encode as an object: %w", err)
	}
	return pongo2.Context(integers(out).(map[string]any)), nil
}

// integers turns whole JSON numbers back into ints so templates print "3"
// rather than a float.
func integers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = integers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = integers(item)
		}
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int(v)
		}
		return v
	default:
		return v
	}
}
