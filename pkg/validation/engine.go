package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	// ErrUnknownChecker is returned when a unique rule names a checker that
	// was never registered.
	ErrUnknownChecker = errors.New("validation: unknown checker")
	// ErrUnknownField is returned when ValidateFields is asked for a field the
	// schema does not declare.
	ErrUnknownField = errors.New("validation: unknown field")
)

// Registered validator tags.
const (
	tagMinAge   = "min_age"
	tagISODate  = "iso_date"
	tagAccepted = "accepted"
	tagFileType = "file_type"
)

// Engine validates records against schemas. It is safe for concurrent use.
type Engine struct {
	validate *validator.Validate
	now      func() time.Time
	checkers map[string]Checker
	logger   *zap.Logger
	metrics  Metrics

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// New builds an engine with the provided options.
func New(options ...Option) *Engine {
	e := &Engine{
		validate: validator.New(),
		now:      time.Now,
		checkers: make(map[string]Checker),
		logger:   zap.NewNop(),
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	e.registerTags()
	return e
}

func (e *Engine) registerTags() {
	// Registration only fails on empty tags or nil funcs.
	_ = e.validate.RegisterValidation(tagMinAge, e.isMinAge)
	_ = e.validate.RegisterValidation(tagISODate, isISODate)
	_ = e.validate.RegisterValidation(tagAccepted, isAccepted)
	_ = e.validate.RegisterValidation(tagFileType, isFileType)
}

// Now returns the engine's current time in UTC.
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// Validate checks every field and refinement of the schema.
func (e *Engine) Validate(ctx context.Context, s schema.Schema, record model.Record) (Result, error) {
	return e.run(ctx, s.Name, s.Fields, s.Refinements, record)
}

// ValidateFields checks only the named fields plus the refinements whose error
// path is one of them. Refinements still see the whole record.
func (e *Engine) ValidateFields(ctx context.Context, s schema.Schema, record model.Record, fields ...string) (Result, error) {
	for _, name := range fields {
		if _, ok := s.Field(name); !ok {
			return Result{}, fmt.Errorf("%w %q in %q", ErrUnknownField, name, s.Name)
		}
	}
	scoped := s.Pick(s.Name, fields...)
	return e.run(ctx, s.Name, scoped.Fields, scoped.Refinements, record)
}

func (e *Engine) run(ctx context.Context, scope string, fields []model.FieldSchema, refinements []schema.Refinement, record model.Record) (Result, error) {
	started := e.now()
	result := Result{}
	pending := make([]asyncCheck, 0)

	for _, field := range fields {
		rule, message, async := e.checkField(field, record[field.Name])
		if message != "" {
			result.add(field.Name, rule, message)
			continue
		}
		for _, r := range async {
			pending = append(pending, asyncCheck{field: field, rule: r})
		}
	}

	for _, check := range pending {
		if _, failed := result.Errors[check.field.Name]; failed {
			continue
		}
		ok, err := e.runChecker(ctx, check, record[check.field.Name])
		if err != nil {
			return Result{}, err
		}
		if !ok {
			result.add(check.field.Name, check.rule.Kind, ruleMessage(check.field, check.rule))
		}
	}

	for _, ref := range refinements {
		if _, failed := result.Errors[ref.Path]; failed {
			continue
		}
		if !ref.Passes(record) {
			result.add(ref.Path, ref.Kind, ref.Message)
		}
	}

	if result.Valid() {
		names := make([]string, 0, len(fields))
		for _, field := range fields {
			names = append(names, field.Name)
		}
		result.Value = record.Pick(names...)
	}

	elapsed := e.now().Sub(started)
	e.logger.Debug("validation completed",
		zap.String("scope", scope),
		zap.Int("fields", len(fields)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", elapsed),
	)
	if e.metrics != nil {
		e.metrics.ValidationCompleted(ctx, scope, result.Valid(), elapsed)
	}
	return result, nil
}

type asyncCheck struct {
	field model.FieldSchema
	rule  model.Rule
}

func (e *Engine) runChecker(ctx context.Context, check asyncCheck, value any) (bool, error) {
	checker, ok := e.checkers[check.rule.Value]
	if !ok {
		return false, fmt.Errorf("%w %q for field %q", ErrUnknownChecker, check.rule.Value, check.field.Name)
	}
	text, _ := value.(string)
	passed, err := checker.Check(ctx, text)
	if err != nil {
		return false, fmt.Errorf("validation: %s check on %q: %w", check.rule.Value, check.field.Name, err)
	}
	return passed, nil
}

// checkField runs the synchronous rules for a single field. It returns the
// failing rule kind and message, or the async rules still to run.
func (e *Engine) checkField(field model.FieldSchema, raw any) (string, string, []model.Rule) {
	value, ok := coerce(field.Type, raw)
	if !ok {
		return "type", typeMessage(field), nil
	}

	if !schema.Present(value) {
		if field.Required {
			return model.RuleKindRequired, requiredMessage(field), nil
		}
		for _, rule := range field.Rules {
			if rule.Kind == model.RuleKindRequired {
				return rule.Kind, ruleMessage(field, rule), nil
			}
		}
		return "", "", nil
	}

	var async []model.Rule
	for _, rule := range field.Rules {
		if rule.Async() {
			async = append(async, rule)
			continue
		}
		if !e.passes(field, rule, value) {
			return rule.Kind, ruleMessage(field, rule), nil
		}
	}
	return "", "", async
}

func (e *Engine) passes(field model.FieldSchema, rule model.Rule, value any) bool {
	switch rule.Kind {
	case model.RuleKindRequired:
		return true
	case model.RuleKindMinLength:
		return e.check(value, "min="+rule.Value)
	case model.RuleKindMaxLength:
		return e.check(value, "max="+rule.Value)
	case model.RuleKindMin:
		return e.check(value, "gte="+rule.Value)
	case model.RuleKindMax:
		return e.check(value, "lte="+rule.Value)
	case model.RuleKindMinItems:
		return e.check(value, "min="+rule.Value)
	case model.RuleKindEmail:
		return e.check(value, "email")
	case model.RuleKindAccepted:
		return e.check(value, tagAccepted)
	case model.RuleKindDate:
		return e.check(value, tagISODate)
	case model.RuleKindMinAge:
		return e.check(value, tagMinAge+"="+rule.Value)
	case model.RuleKindPattern:
		text, ok := value.(string)
		if !ok {
			return false
		}
		re, err := e.pattern(rule.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	case model.RuleKindOneOf:
		allowed := rule.Values
		if len(allowed) == 0 {
			allowed = field.Options
		}
		return memberOf(value, allowed)
	case model.RuleKindMaxFileSize:
		files, _ := value.([]model.FileHandle)
		for _, file := range files {
			if !e.check(file.Size, "lte="+rule.Value) {
				return false
			}
		}
		return true
	case model.RuleKindFileTypes:
		files, _ := value.([]model.FileHandle)
		tag := tagFileType + "=" + strings.Join(rule.Values, " ")
		for _, file := range files {
			if !e.check(file.MIMEType, tag) {
				return false
			}
		}
		return true
	default:
		e.logger.Warn("unknown rule kind", zap.String("field", field.Name), zap.String("kind", rule.Kind))
		return false
	}
}

func (e *Engine) check(value any, tag string) bool {
	return e.validate.Var(value, tag) == nil
}

func (e *Engine) pattern(expr string) (*regexp.Regexp, error) {
	e.mu.RLock()
	re, ok := e.patterns[expr]
	e.mu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.patterns[expr] = re
	e.mu.Unlock()
	return re, nil
}

func (e *Engine) isMinAge(fl validator.FieldLevel) bool {
	years, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	dob, err := ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	return Age(dob, e.Now()) >= years
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

func isAccepted(fl validator.FieldLevel) bool {
	return fl.Field().Bool()
}

func isFileType(fl validator.FieldLevel) bool {
	mime := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	for _, allowed := range strings.Fields(fl.Param()) {
		if strings.EqualFold(mime, allowed) {
			return true
		}
	}
	return false
}

func memberOf(value any, allowed []string) bool {
	switch v := value.(type) {
	case string:
		return slices.Contains(allowed, v)
	case []string:
		for _, item := range v {
			if !slices.Contains(allowed, item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
