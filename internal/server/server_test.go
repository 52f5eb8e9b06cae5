package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

type fixture struct {
	srv    *server.Server
	ts     *httptest.Server
	client *http.Client
	sink   *submission.LogSink
	store  *wizard.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := validation.New(
		validation.WithClock(testsupport.Clock(testsupport.Today)),
		validation.WithChecker("email", uniqueness.NewStub(uniqueness.WithDelay(0))),
	)
	renderer, err := vanilla.New()
	require.NoError(t, err)
	renderers := render.NewRegistry()
	renderers.MustRegister(renderer)

	sink := submission.NewLogSink(nil)
	store := wizard.NewMemoryStore()
	srv, err := server.New(testsupport.Forms(t), engine, sink,
		server.WithStore(store),
		server.WithRenderer(renderers, vanilla.Name),
		server.WithAssets("/assets", vanilla.AssetsFS()),
		server.WithWizardOptions(wizard.WithClock(testsupport.Clock(testsupport.Today))),
	)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{srv: srv, ts: ts, client: &http.Client{Jar: jar}, sink: sink, store: store}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	res, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	return readBody(t, res)
}

func (f *fixture) postForm(t *testing.T, path string, values url.Values) (int, string) {
	t.Helper()
	res, err := f.client.PostForm(f.ts.URL+path, values)
	require.NoError(t, err)
	return readBody(t, res)
}

func (f *fixture) postJSON(t *testing.T, path string, body string) (int, string) {
	t.Helper()
	res, err := f.client.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return readBody(t, res)
}

func (f *fixture) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == "formflow_onboarding" {
			return c.Value
		}
	}
	t.Fatalf("no onboarding session cookie")
	return ""
}

func readBody(t *testing.T, res *http.Response) (int, string) {
	t.Helper()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := server.New(nil, nil, nil)
	require.Error(t, err)

	_, err = server.New(testsupport.Forms(t), validation.New(), submission.NewLogSink(nil))
	require.ErrorContains(t, err, "renderer")
}

func TestSinglePage_RenderAndSubmit(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/freelance")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<h1>Freelancer Registration</h1>`)
	assert.Contains(t, body, `name="email"`)

	values := url.Values{
		"fullName": {"A"},
		"email":    {"not-an-email"},
		"password": {"analytical"},
		"age":      {"36"},
	}
	status, body = f.postForm(t, "/freelance", values)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Full name must be at least 2 characters")
	assert.Contains(t, body, "Please enter a valid email address")
	assert.NotContains(t, body, "Email already taken")
	assert.Equal(t, 0, f.sink.Count())
}

func TestWizard_FlowThroughSteps(t *testing.T) {
	f := newFixture(t)
	valid := testsupport.ValidOnboarding()

	status, body := f.get(t, "/onboarding")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 1 of 3: Personal Details")
	assert.Contains(t, body, `name="_token" value="0"`)

	status, body = f.postForm(t, "/onboarding/next", url.Values{
		"fullName": {"Gr"},
		"email":    {"test@example.com"},
		"dob":      {"1990-01-01"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Step 1 of 3")
	assert.Contains(t, body, "Email already taken")

	status, body = f.postForm(t, "/onboarding/next", url.Values{
		"fullName": {valid["fullName"].(string)},
		"email":    {valid["email"].(string)},
		"dob":      {valid["dob"].(string)},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 2 of 3: Account Preferences")

	status, body = f.postForm(t, "/onboarding/back", url.Values{"accountType": {"Live"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 1 of 3")
	assert.Contains(t, body, `value="Grace Hopper"`)

	status, _ = f.postForm(t, "/onboarding/next", url.Values{
		"fullName": {valid["fullName"].(string)},
		"email":    {valid["email"].(string)},
		"dob":      {valid["dob"].(string)},
	})
	require.Equal(t, http.StatusOK, status)

	status, body = f.postForm(t, "/onboarding/next", url.Values{
		"accountType":   {"Live"},
		"riskTolerance": {"Low"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "PAN is required for Live accounts")

	status, body = f.postForm(t, "/onboarding/next", url.Values{
		"accountType":   {"Demo"},
		"riskTolerance": {"Low"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 3 of 3: Security")

	status, body = f.postForm(t, "/onboarding/submit", url.Values{
		"password":        {"Cobol#1959"},
		"confirmPassword": {"Cobol#1959"},
		"agreeToTerms":    {"on"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, submission.DefaultConfirmation)
	assert.Equal(t, 1, f.sink.Count())

	status, _ = f.postForm(t, "/onboarding/next", url.Values{})
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.postForm(t, "/onboarding/reset", url.Values{})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 1 of 3")
}

func TestWizard_PendingValidationBlocksIntents(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/onboarding")
	id := f.sessionID(t)

	session, ok := f.srv.Session("onboarding")
	require.True(t, ok)
	st, err := session.Get(testsupport.Context(), id)
	require.NoError(t, err)
	pending, _, err := session.Wizard().Begin(st, wizard.IntentAdvance, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Save(testsupport.Context(), id, pending))

	status, body := f.get(t, "/onboarding")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Validating…")
	assert.Contains(t, body, `http-equiv="refresh"`)

	status, _ = f.postForm(t, "/onboarding/next", url.Values{"fullName": {"Grace Hopper"}})
	assert.Equal(t, http.StatusConflict, status)

	stored, err := f.store.Load(testsupport.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Values["fullName"])
}

func TestWizard_StaleTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/onboarding")

	status, body := f.postForm(t, "/onboarding/next", url.Values{
		"_token":   {"41"},
		"fullName": {"Grace Hopper"},
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, server.StaleStepMessage)
}

func TestAPI_ValidateRecord(t *testing.T) {
	f := newFixture(t)

	status, body := f.postJSON(t, "/api/forms/onboarding/validate", `{"fullName":"Gr","email":"grace@example.com"}`)
	require.Equal(t, http.StatusOK, status)

	var result server.ValidationResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.False(t, result.Valid)
	assert.Equal(t, "Full name must have at least 3 characters", result.Errors["fullName"])
	assert.NotEmpty(t, result.Issues)

	record, err := json.Marshal(testsupport.ValidOnboarding())
	require.NoError(t, err)
	status, body = f.postJSON(t, "/api/forms/onboarding/validate", string(record))
	require.Equal(t, http.StatusOK, status)
	result = server.ValidationResult{}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "Grace Hopper", result.Value["fullName"])
}

func TestAPI_ValidateField(t *testing.T) {
	f := newFixture(t)

	status, body := f.postForm(t, "/api/forms/onboarding/fields/email/validate", url.Values{"email": {"test@example.com"}})
	require.Equal(t, http.StatusOK, status)
	var result server.FieldResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, server.FieldResult{Field: "email", Valid: false, Error: "Email already taken"}, result)

	status, body = f.postForm(t, "/api/forms/freelance/fields/email/validate", url.Values{"email": {"test@example.com"}})
	require.Equal(t, http.StatusOK, status)
	result = server.FieldResult{}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, server.FieldResult{Field: "email", Valid: true}, result)

	status, body = f.postForm(t, "/api/forms/freelance/fields/email/validate", url.Values{"email": {"nope"}})
	require.Equal(t, http.StatusOK, status)
	result = server.FieldResult{}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, server.FieldResult{Field: "email", Valid: false, Error: "Please enter a valid email address"}, result)

	status, body = f.postJSON(t, "/api/forms/onboarding/fields/confirmPassword/validate", `{"password":"Cobol#1959","confirmPassword":"Cobol#1958"}`)
	require.Equal(t, http.StatusOK, status)
	result = server.FieldResult{}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, "Passwords do not match", result.Error)
}

func TestAPI_Submit(t *testing.T) {
	f := newFixture(t)

	status, body := f.postJSON(t, "/api/forms/freelance/submit", `{"fullName":"Ada"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, `"valid":false`)

	record, err := json.Marshal(testsupport.ValidFreelance())
	require.NoError(t, err)
	status, body = f.postJSON(t, "/api/forms/freelance/submit", string(record))
	require.Equal(t, http.StatusCreated, status)
	var receipt submission.Receipt
	require.NoError(t, json.Unmarshal([]byte(body), &receipt))
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, submission.DefaultConfirmation, receipt.Message)
	assert.Equal(t, 1, f.sink.Count())

	status, _ = f.postJSON(t, "/api/forms/onboarding/submit", string(record))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Errors(t *testing.T) {
	f := newFixture(t)

	status, _ := f.postJSON(t, "/api/forms/missing/validate", `{}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.postJSON(t, "/api/forms/freelance/fields/nope/validate", `{}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.postJSON(t, "/api/forms/freelance/validate", `{"fullName":`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_FormsAndDocuments(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/api/forms")
	require.Equal(t, http.StatusOK, status)
	var forms []server.FormSummary
	require.NoError(t, json.Unmarshal([]byte(body), &forms))
	require.Len(t, forms, 2)
	assert.Equal(t, "freelance", forms[0].ID)
	assert.Equal(t, 3, forms[1].Steps)

	status, body = f.get(t, "/api/forms/onboarding")
	require.Equal(t, http.StatusOK, status)
	var detail server.FormDetail
	require.NoError(t, json.Unmarshal([]byte(body), &detail))
	assert.Equal(t, "Personal Details", detail.Parts[0].Title)
	assert.Len(t, detail.Refinements, 2)

	status, body = f.get(t, "/openapi.json")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"operationId":"validateOnboarding"`)

	status, body = f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","checks":{}}`, body)

	status, body = f.get(t, "/assets/"+vanilla.StylesheetName)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ".ff-")
}
