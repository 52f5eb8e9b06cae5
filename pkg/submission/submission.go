// Package submission defines where validated records go once a form passes:
// the Sink contract, a logging reference sink and the HTML sanitiser sinks
// apply to free-text fields before writing them out.
package submission

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// DefaultConfirmation is the message returned by LogSink.
const DefaultConfirmation = "Form submitted successfully!"

// ErrEmptySubmission is returned when a sink receives no record.
var ErrEmptySubmission = errors.New("submission: record is empty")

// Submission is a validated record handed to a sink.
type Submission struct {
	ID          string       `json:"id"`
	Form        string       `json:"form"`
	Record      model.Record `json:"record"`
	SubmittedAt time.Time    `json:"submittedAt"`
	// Sensitive lists fields sinks must not write to logs.
	Sensitive []string `json:"-"`
	// Markup lists free-text fields sinks must sanitize before rendering or
	// logging them.
	Markup []string `json:"-"`
}

// Receipt confirms a submission.
type Receipt struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Sink receives validated records.
type Sink interface {
	Submit(ctx context.Context, sub Submission) (Receipt, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sub Submission) (Receipt, error)

// Submit implements Sink.
func (fn SinkFunc) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	return fn(ctx, sub)
}

// New prepares a submission for form. The record is handed over as
// validated; password fields are flagged sensitive and fields marked
// sanitize are flagged as markup.
func New(s schema.Schema, record model.Record, at time.Time) Submission {
	var sensitive, markup []string
	for _, field := range s.Fields {
		if field.Widget == "password" {
			sensitive = append(sensitive, field.Name)
		}
		if field.Sanitize {
			markup = append(markup, field.Name)
		}
	}
	return Submission{
		ID:          uuid.NewString(),
		Form:        s.Name,
		Record:      record.Clone(),
		SubmittedAt: at.UTC(),
		Sensitive:   sensitive,
		Markup:      markup,
	}
}

var (
	policyOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Sanitize returns a copy of record with markup stripped from string fields
// marked sanitize.
func Sanitize(s schema.Schema, record model.Record) model.Record {
	var fields []string
	for _, field := range s.Fields {
		if field.Sanitize {
			fields = append(fields, field.Name)
		}
	}
	return SanitizeFields(record, fields...)
}

// SanitizeFields returns a copy of record with markup stripped from the named
// string fields.
func SanitizeFields(record model.Record, fields ...string) model.Record {
	out := record.Clone()
	for _, name := range fields {
		if text, ok := out[name].(string); ok {
			out[name] = policy().Sanitize(text)
		}
	}
	return out
}

// LogSink logs submissions and discards them.
type LogSink struct {
	logger  *zap.Logger
	message string

	mu    sync.Mutex
	count int
}

// NewLogSink returns a sink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, message: DefaultConfirmation}
}

// Submit implements Sink.
func (s *LogSink) Submit(_ context.Context, sub Submission) (Receipt, error) {
	if len(sub.Record) == 0 {
		return Receipt{}, ErrEmptySubmission
	}
	s.mu.Lock()
	s.count++
	s.mu.Unlock()

	s.logger.Info("form submitted",
		zap.String("id", sub.ID),
		zap.String("form", sub.Form),
		zap.Time("submitted_at", sub.SubmittedAt),
		zap.Any("record", redact(SanitizeFields(sub.Record, sub.Markup...), sub.Sensitive)),
	)
	return Receipt{ID: sub.ID, Message: s.message}, nil
}

// Count returns how many submissions were accepted.
func (s *LogSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func redact(record model.Record, sensitive []string) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		out[key] = value
	}
	sort.Strings(sensitive)
	for _, key := range sensitive {
		if _, ok := out[key]; ok {
			out[key] = "[redacted]"
		}
	}
	return out
}

// ErrBlocked is returned when a submit or advance is attempted while errors
// exist or validation is pending.
var ErrBlocked = errors.New("submission: blocked")
