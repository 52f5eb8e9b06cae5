package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/goliatone/go-formflow/internal/observability"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumByAttr(t *testing.T, data metricdata.Aggregation, key attribute.Key) map[string]int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	out := map[string]int64{}
	for _, point := range sum.DataPoints {
		value, _ := point.Attributes.Value(key)
		out[value.Emit()] += point.Value
	}
	return out
}

func TestMetrics_Validation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	engine := validation.New(
		validation.WithClock(testsupport.Clock(testsupport.Today)),
		validation.WithMetrics(metrics),
	)
	form := testsupport.Form(t, "freelance")

	_, err = engine.Validate(context.Background(), form.Schema(), testsupport.ValidFreelance())
	require.NoError(t, err)
	_, err = engine.Validate(context.Background(), form.Schema(), nil)
	require.NoError(t, err)

	data := collect(t, reader)
	byValid := sumByAttr(t, data["formflow.validation.count"], "valid")
	assert.Equal(t, map[string]int64{"true": 1, "false": 1}, byValid)

	hist, ok := data["formflow.validation.duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, point := range hist.DataPoints {
		count += point.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestMetrics_CountingSink(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	fail := true
	sink := metrics.CountingSink(submission.SinkFunc(func(_ context.Context, sub submission.Submission) (submission.Receipt, error) {
		if fail {
			return submission.Receipt{}, errors.New("downstream unavailable")
		}
		return submission.Receipt{ID: sub.ID}, nil
	}))

	_, err = sink.Submit(context.Background(), submission.Submission{ID: "1", Form: "freelance"})
	require.Error(t, err)
	fail = false
	receipt, err := sink.Submit(context.Background(), submission.Submission{ID: "2", Form: "freelance"})
	require.NoError(t, err)
	assert.Equal(t, "2", receipt.ID)

	byOK := sumByAttr(t, collect(t, reader)["formflow.submission.count"], "ok")
	assert.Equal(t, map[string]int64{"true": 1, "false": 1}, byOK)
}
