package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/goliatone/go-formflow/internal/app"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Uniqueness.Delay = 0
	cfg.Server.Mode = "test"
	return cfg
}

func TestNew_SubmissionReservesEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	a, err := app.New(testConfig(), nil,
		app.WithMeterProvider(provider),
		app.WithClock(testsupport.Clock(testsupport.Today)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	handler := a.Server.Handler()
	checkEmail := func() server.FieldResult {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/forms/onboarding/fields/email/validate",
			strings.NewReader(`{"email":"grace@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result server.FieldResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		return result
	}
	assert.Equal(t, server.FieldResult{Field: "email", Valid: true}, checkEmail())

	session, ok := a.Server.Session("onboarding")
	require.True(t, ok)
	ctx := testsupport.Context()
	id, _, err := session.Start(ctx)
	require.NoError(t, err)
	_, err = session.Apply(ctx, id, testsupport.ValidOnboarding())
	require.NoError(t, err)
	for range 2 {
		_, err = session.Advance(ctx, id)
		require.NoError(t, err)
	}
	st, _, err := session.Submit(ctx, id)
	require.NoError(t, err)
	require.True(t, st.Submitted)

	assert.Equal(t, server.FieldResult{Field: "email", Valid: false, Error: "Email already taken"}, checkEmail())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(testsupport.Context(), &rm))
	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["formflow.submission.count"])
	assert.True(t, names["formflow.validation.count"])
}

func TestLoadForms_MergesDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `forms:
  contact:
    title: Contact
    mode: single
    parts:
      - contact.main

parts:
  contact.main:
    title: Contact
    fields:
      - name: message
        type: string
        required: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contact.yaml"), []byte(doc), 0o644))

	forms, err := app.LoadForms(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact", "freelance", "onboarding"}, forms.Forms())
}

func TestLoadForms_Errors(t *testing.T) {
	_, err := app.LoadForms(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	dir := t.TempDir()
	dup := `forms:
  freelance:
    title: Again
    mode: single
    parts:
      - again.main

parts:
  again.main:
    title: Main
    fields:
      - name: note
        type: string
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte(dup), 0o644))
	_, err = app.LoadForms(dir)
	require.ErrorContains(t, err, "duplicate form")
}
