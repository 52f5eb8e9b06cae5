package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// FormSummary lists a registered form.
type FormSummary struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Mode  schema.Mode `json:"mode"`
	Steps int         `json:"steps"`
}

// FormDetail describes a form and its parts.
type FormDetail struct {
	FormSummary
	Description string              `json:"description,omitempty"`
	SubmitLabel string              `json:"submitLabel,omitempty"`
	Parts       []PartDetail        `json:"parts"`
	Refinements []schema.Refinement `json:"refinements,omitempty"`
}

// PartDetail is a section or wizard step.
type PartDetail struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Fields []model.FieldSchema `json:"fields"`
}

// FieldResult is the response of a single field check.
type FieldResult struct {
	Field string `json:"field"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult is the response of a record check.
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors map[string]string  `json:"errors,omitempty"`
	Issues []validation.Issue `json:"issues,omitempty"`
	Value  model.Record       `json:"value,omitempty"`
}

func (s *Server) listForms(c *gin.Context) {
	forms := s.forms.All()
	out := make([]FormSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, summarize(f))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) describeForm(c *gin.Context) {
	f, ok := s.forms.Form(c.Param("id"))
	if !ok {
		notFound(c, "unknown form")
		return
	}
	detail := FormDetail{
		FormSummary: summarize(f),
		Description: f.Description,
		SubmitLabel: f.SubmitLabel,
	}
	for _, part := range f.Parts {
		detail.Parts = append(detail.Parts, PartDetail{ID: part.ID, Title: part.Title, Fields: part.Fields})
	}
	detail.Refinements = f.Schema().Refinements
	c.JSON(http.StatusOK, detail)
}

func (s *Server) validateRecord(c *gin.Context) {
	f, ok := s.forms.Form(c.Param("id"))
	if !ok {
		notFound(c, "unknown form")
		return
	}
	record, err := decodeRecord(c, f.Schema())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.engine.Validate(c.Request.Context(), f.Schema(), record)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toValidationResult(result))
}

func (s *Server) validateField(c *gin.Context) {
	f, ok := s.forms.Form(c.Param("id"))
	if !ok {
		notFound(c, "unknown form")
		return
	}
	name := c.Param("field")
	if _, ok := f.Schema().Field(name); !ok {
		notFound(c, "unknown field")
		return
	}
	record, err := decodeRecord(c, f.Schema())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.engine.ValidateFields(c.Request.Context(), f.Schema(), record, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	message := result.Error(name)
	c.JSON(http.StatusOK, FieldResult{Field: name, Valid: message == "", Error: message})
}

func (s *Server) submitRecord(c *gin.Context) {
	ctrl, ok := s.controllers[c.Param("id")]
	if !ok {
		notFound(c, "unknown form")
		return
	}
	record, err := decodeRecord(c, ctrl.Form().Schema())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st := ctrl.Start()
	st.Update(record)
	_, outcome, err := ctrl.Submit(c.Request.Context(), st)
	switch {
	case errors.Is(err, form.ErrSubmissionBlocked):
		c.JSON(http.StatusUnprocessableEntity, toValidationResult(outcome.Result))
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusCreated, outcome.Receipt)
	}
}

func summarize(f schema.Form) FormSummary {
	return FormSummary{ID: f.ID, Title: f.Title, Mode: f.Mode, Steps: len(f.Parts)}
}

func toValidationResult(result validation.Result) ValidationResult {
	return ValidationResult{
		Valid:  result.Valid(),
		Errors: result.Errors,
		Issues: result.Issues,
		Value:  result.Value,
	}
}

func notFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": message})
}

// statusFor maps wizard and form errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wizard.ErrValidationPending),
		errors.Is(err, wizard.ErrAlreadySubmitted),
		errors.Is(err, wizard.ErrStaleValidation):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrSubmissionBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, form.ErrUnknownField),
		errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
