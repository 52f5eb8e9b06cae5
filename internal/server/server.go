// Package server exposes the forms over HTTP: server-rendered pages for the
// single-page form and the wizard, plus a JSON validation API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore selects where wizard sessions live. Defaults to memory.
func WithStore(store wizard.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRenderer selects the page renderer by name from registry.
func WithRenderer(registry *render.Registry, name string) Option {
	return func(s *Server) {
		if registry != nil {
			s.renderers = registry
			s.renderer = name
		}
	}
}

// WithAssets serves fsys under path.
func WithAssets(path string, fsys fs.FS) Option {
	return func(s *Server) {
		s.assetsPath = path
		s.assets = fsys
	}
}

// WithWizardOptions passes options to every wizard the server builds.
func WithWizardOptions(options ...wizard.Option) Option {
	return func(s *Server) {
		s.wizardOpts = append(s.wizardOpts, options...)
	}
}

// WithSessionCookie configures the wizard session cookie.
func WithSessionCookie(ttl time.Duration, secure bool) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.cookieTTL = ttl
		}
		s.cookieSecure = secure
	}
}

// WithHealthCheck adds a named check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if name != "" && check != nil {
			s.health[name] = check
		}
	}
}

// Server owns the per-form controllers and wizard sessions.
type Server struct {
	forms  *schema.Registry
	engine *validation.Engine
	sink   submission.Sink
	store  wizard.Store
	logger *zap.Logger

	renderers *render.Registry
	renderer  string

	assetsPath string
	assets     fs.FS

	wizardOpts   []wizard.Option
	cookieTTL    time.Duration
	cookieSecure bool
	health       map[string]HealthCheck

	controllers map[string]*form.Controller
	sessions    map[string]*wizard.Session
	openapi     []byte
}

// New wires a controller for every single-page form and a session for every
// wizard in forms.
func New(forms *schema.Registry, engine *validation.Engine, sink submission.Sink, options ...Option) (*Server, error) {
	if forms == nil || engine == nil || sink == nil {
		return nil, fmt.Errorf("server: forms, engine and sink are required")
	}
	s := &Server{
		forms:       forms,
		engine:      engine,
		sink:        sink,
		store:       wizard.NewMemoryStore(),
		logger:      zap.NewNop(),
		cookieTTL:   24 * time.Hour,
		health:      map[string]HealthCheck{},
		controllers: map[string]*form.Controller{},
		sessions:    map[string]*wizard.Session{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.renderers == nil {
		return nil, fmt.Errorf("server: a renderer is required")
	}
	if _, err := s.renderers.Get(s.renderer); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	for _, f := range forms.All() {
		switch f.Mode {
		case schema.ModeWizard:
			w, err := wizard.New(f, engine, append([]wizard.Option{wizard.WithLogger(s.logger)}, s.wizardOpts...)...)
			if err != nil {
				return nil, fmt.Errorf("server: %w", err)
			}
			session, err := wizard.NewSession(w, s.store, sink, wizard.WithSessionLogger(s.logger))
			if err != nil {
				return nil, fmt.Errorf("server: %w", err)
			}
			s.sessions[f.ID] = session
		default:
			c, err := form.NewController(f, engine, sink, form.WithLogger(s.logger))
			if err != nil {
				return nil, fmt.Errorf("server: %w", err)
			}
			s.controllers[f.ID] = c
		}
	}

	doc, err := openapi.Document(forms.All())
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if s.openapi, err = json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("server: encode openapi: %w", err)
	}
	return s, nil
}

// Session returns the wizard session of formID.
func (s *Server) Session(formID string) (*wizard.Session, bool) {
	session, ok := s.sessions[formID]
	return session, ok
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	ids := make([]string, 0, len(s.controllers)+len(s.sessions))
	for id := range s.controllers {
		ids = append(ids, id)
	}
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if c, ok := s.controllers[id]; ok {
			r.GET("/"+id, s.showForm(c))
			r.POST("/"+id, s.submitForm(c))
			continue
		}
		session := s.sessions[id]
		r.GET("/"+id, s.showWizard(session))
		r.POST("/"+id+"/next", s.wizardStep(session, actionNext))
		r.POST("/"+id+"/back", s.wizardStep(session, actionBack))
		r.POST("/"+id+"/submit", s.wizardStep(session, actionSubmit))
		r.POST("/"+id+"/reset", s.resetWizard(session))
	}

	api := r.Group("/api/forms")
	api.GET("", s.listForms)
	api.GET("/:id", s.describeForm)
	api.POST("/:id/validate", s.validateRecord)
	api.POST("/:id/fields/:field/validate", s.validateField)
	api.POST("/:id/submit", s.submitRecord)

	r.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", s.openapi)
	})
	r.GET("/healthz", s.healthz)

	if s.assets != nil && s.assetsPath != "" {
		r.StaticFS(s.assetsPath, http.FS(s.assets))
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		)
	}
}

func (s *Server) healthz(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK
	for name, check := range s.health {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (s *Server) renderView(c *gin.Context, status int, view render.View) {
	out, contentType, err := s.renderers.Render(c.Request.Context(), s.renderer, view)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(status, contentType, out)
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
