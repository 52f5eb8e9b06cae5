package validation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Metrics receives one observation per validation run.
type Metrics interface {
	ValidationCompleted(ctx context.Context, scope string, valid bool, elapsed time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for age rules.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithChecker registers the checker referenced by unique rules whose value is
// name.
func WithChecker(name string, checker Checker) Option {
	return func(e *Engine) {
		if name == "" || checker == nil {
			return
		}
		e.checkers[name] = checker
	}
}

// WithLogger sets the logger used for debug tracing of validation runs.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}
