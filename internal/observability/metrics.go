// Package observability records validation and submission metrics with
// OpenTelemetry instruments.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/validation"
)

const meterName = "github.com/goliatone/go-formflow"

// Metrics holds the OTel instruments.
type Metrics struct {
	Validations       metric.Int64Counter
	ValidationLatency metric.Float64Histogram
	Submissions       metric.Int64Counter
}

var _ validation.Metrics = (*Metrics)(nil)

// NewMetrics creates the instruments on provider, or on the global provider
// when provider is nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	var meter metric.Meter
	if provider != nil {
		meter = provider.Meter(meterName)
	} else {
		meter = otel.Meter(meterName)
	}

	validations, err := meter.Int64Counter("formflow.validation.count",
		metric.WithDescription("Number of validation runs"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("formflow.validation.duration_seconds",
		metric.WithDescription("Validation run latency including async checks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	submissions, err := meter.Int64Counter("formflow.submission.count",
		metric.WithDescription("Number of submissions handed to a sink"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Validations:       validations,
		ValidationLatency: latency,
		Submissions:       submissions,
	}, nil
}

// ValidationCompleted implements validation.Metrics.
func (m *Metrics) ValidationCompleted(ctx context.Context, scope string, valid bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.Bool("valid", valid),
	)
	m.Validations.Add(ctx, 1, attrs)
	m.ValidationLatency.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSubmission records one sink call.
func (m *Metrics) RecordSubmission(ctx context.Context, form string, ok bool) {
	m.Submissions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("form", form),
			attribute.Bool("ok", ok),
		),
	)
}

// CountingSink wraps a sink and records every submission it receives.
func (m *Metrics) CountingSink(next submission.Sink) submission.Sink {
	return submission.SinkFunc(func(ctx context.Context, sub submission.Submission) (submission.Receipt, error) {
		receipt, err := next.Submit(ctx, sub)
		m.RecordSubmission(ctx, sub.Form, err == nil)
		return receipt, err
	})
}
