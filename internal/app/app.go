// Package app assembles the form services from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/observability"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
	"github.com/goliatone/go-formflow/pkg/wizard/redisstore"
)

// EmailField is the field reserved after a submission.
const EmailField = "email"

// Option customises assembly.
type Option func(*options)

type options struct {
	provider metric.MeterProvider
	clock    func() time.Time
	redis    *redis.Client
}

// WithMeterProvider records metrics on provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithClock fixes the time used for date rules and pending expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithRedisClient reuses client instead of dialling cfg.Redis.Addr.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// App holds the assembled services.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Forms   *schema.Registry
	Engine  *validation.Engine
	Metrics *observability.Metrics
	Sink    submission.Sink
	Store   wizard.Store
	Server  *server.Server

	redis     *redis.Client
	ownsRedis bool
}

// New builds every service described by cfg.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	forms, err := LoadForms(cfg.Schemas.Dir)
	if err != nil {
		return nil, err
	}
	a.Forms = forms

	if a.Metrics, err = observability.NewMetrics(o.provider); err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	if cfg.Redis.Enabled {
		a.redis = o.redis
		if a.redis == nil {
			a.redis = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			a.ownsRedis = true
		}
	}

	checker, reserver := a.emailRegistry(cfg.Uniqueness)
	var engineChecker validation.Checker = checker
	if cfg.Uniqueness.RatePerSecond > 0 {
		engineChecker = uniqueness.NewRateLimited(checker, cfg.Uniqueness.RatePerSecond, cfg.Uniqueness.Burst)
	}
	engineOpts := []validation.Option{
		validation.WithChecker(EmailField, engineChecker),
		validation.WithLogger(logger),
		validation.WithMetrics(a.Metrics),
	}
	wizardOpts := []wizard.Option{wizard.WithPendingTTL(cfg.Wizard.PendingTTL)}
	if o.clock != nil {
		engineOpts = append(engineOpts, validation.WithClock(o.clock))
		wizardOpts = append(wizardOpts, wizard.WithClock(o.clock))
	}
	a.Engine = validation.New(engineOpts...)

	a.Sink = uniqueness.ReserveOnSubmit(
		a.Metrics.CountingSink(submission.NewLogSink(logger)),
		reserver,
		EmailField,
	)

	a.Store = wizard.NewMemoryStore()
	if a.redis != nil {
		a.Store = redisstore.New(a.redis,
			redisstore.WithTTL(cfg.Wizard.SessionTTL),
			redisstore.WithPrefix(cfg.Redis.SessionPrefix),
		)
	}

	renderer, err := vanilla.New(vanilla.WithAssetsPath(cfg.Server.AssetsPath))
	if err != nil {
		return nil, fmt.Errorf("app: renderer: %w", err)
	}
	renderers := render.NewRegistry()
	if err := renderers.Register(renderer); err != nil {
		return nil, fmt.Errorf("app: renderer: %w", err)
	}

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithStore(a.Store),
		server.WithRenderer(renderers, vanilla.Name),
		server.WithAssets(cfg.Server.AssetsPath, vanilla.AssetsFS()),
		server.WithWizardOptions(wizardOpts...),
		server.WithSessionCookie(cfg.Wizard.SessionTTL, cfg.Server.CookieSecure),
	}
	if a.redis != nil {
		serverOpts = append(serverOpts, server.WithHealthCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	if a.Server, err = server.New(a.Forms, a.Engine, a.Sink, serverOpts...); err != nil {
		return nil, err
	}

	logger.Info("forms loaded",
		zap.Strings("forms", a.Forms.Forms()),
		zap.Bool("redis", a.redis != nil),
	)
	return a, nil
}

// Close releases connections the app opened.
func (a *App) Close() error {
	if a.redis != nil && a.ownsRedis {
		return a.redis.Close()
	}
	return nil
}

type emailRegistry interface {
	validation.Checker
	uniqueness.Reserver
}

func (a *App) emailRegistry(cfg config.UniquenessConfig) (validation.Checker, uniqueness.Reserver) {
	var registry emailRegistry
	if a.redis != nil {
		registry = uniqueness.NewRedis(a.redis, a.Config.Redis.EmailKey)
	} else {
		registry = uniqueness.NewStub(
			uniqueness.WithDelay(cfg.Delay),
			uniqueness.WithTaken(cfg.Taken...),
		)
	}
	return registry, registry
}

// LoadForms returns the built-in forms plus any definitions found in dir.
func LoadForms(dir string) (*schema.Registry, error) {
	forms, err := formflow.LoadForms()
	if err != nil {
		return nil, fmt.Errorf("app: built-in forms: %w", err)
	}
	if dir == "" {
		return forms, nil
	}
	extra, err := schema.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("app: schemas dir %s: %w", dir, err)
	}
	for _, f := range extra.All() {
		if err := forms.Register(f); err != nil {
			return nil, fmt.Errorf("app: schemas dir %s: %w", dir, err)
		}
	}
	return forms, nil
}
