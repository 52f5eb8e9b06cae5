package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// View is everything a renderer needs to draw one form screen.
type View struct {
	FormID      string          `json:"formId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Mode        string          `json:"mode"`
	Action      string          `json:"action"`
	SubmitLabel string          `json:"submitLabel"`
	Sections    []SectionView   `json:"sections"`
	FormErrors  []string        `json:"formErrors,omitempty"`
	Hidden      []HiddenField   `json:"hidden,omitempty"`
	Message     string          `json:"message,omitempty"`
	Disabled    bool            `json:"disabled"`
	Submitted   bool            `json:"submitted"`
	Focus       string          `json:"focus,omitempty"`
	Wizard      *WizardProgress `json:"wizard,omitempty"`
}

// WizardProgress describes the wizard position.
type WizardProgress struct {
	Step    int    `json:"step"`
	Number  int    `json:"number"`
	Steps   int    `json:"steps"`
	IsFirst bool   `json:"isFirst"`
	IsLast  bool   `json:"isLast"`
	Pending bool   `json:"pending"`
	Title   string `json:"title"`
}

// SectionView groups the fields of one form part.
type SectionView struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldView `json:"fields"`
}

// FieldView is a field with its current value and feedback.
type FieldView struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Type        string       `json:"type"`
	Widget      string       `json:"widget"`
	Placeholder string       `json:"placeholder,omitempty"`
	Help        string       `json:"help,omitempty"`
	Required    bool         `json:"required"`
	Text        string       `json:"text"`
	Checked     bool         `json:"checked"`
	Options     []OptionView `json:"options,omitempty"`
	Files       []string     `json:"files,omitempty"`
	Error       string       `json:"error,omitempty"`
	Visible     bool         `json:"visible"`
	VisibleWhen string       `json:"visibleWhen,omitempty"`
	Autofocus   bool         `json:"autofocus"`
	Disabled    bool         `json:"disabled"`
	Min         string       `json:"min,omitempty"`
	Max         string       `json:"max,omitempty"`
	Accept      string       `json:"accept,omitempty"`
}

// OptionView is one choice of an enum or multi-select field.
type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Options carries per-request view settings.
type Options struct {
	Action  string
	Message string
	Hidden  []HiddenField
}

// BuildForm renders every part of a single-page form as a section.
func BuildForm(form schema.Form, st formstate.State, opts Options) View {
	mapping := MapErrors(form.Schema(), st.Errors)
	view := baseView(form, opts, mapping)
	view.Focus = st.Focus
	for _, part := range form.Parts {
		view.Sections = append(view.Sections, buildSection(part, st.Values, mapping, st.Focus, false))
	}
	return view
}

// BuildWizard renders the current step of a wizard. Inputs and navigation
// are disabled while a validation is pending.
func BuildWizard(w *wizard.Wizard, st wizard.State, opts Options) View {
	form := w.Form()
	mapping := MapErrors(form.Schema(), st.Errors)
	view := baseView(form, opts, mapping)

	pending := w.IsPending(st)
	part, _ := form.Part(st.Step)
	view.Focus = st.Focus
	view.Disabled = pending || st.Submitted
	view.Submitted = st.Submitted
	view.Hidden = SortedHiddenFields(append(append([]HiddenField(nil), opts.Hidden...), TokenField(st.Token))...)
	view.Wizard = &WizardProgress{
		Step:    st.Step,
		Number:  st.Step + 1,
		Steps:   w.Steps(),
		IsFirst: st.Step == 0,
		IsLast:  st.Step == w.LastStep(),
		Pending: pending,
		Title:   part.Title,
	}
	if !st.Submitted {
		view.Sections = []SectionView{buildSection(part, st.Values, mapping, st.Focus, view.Disabled)}
	}
	return view
}

func baseView(form schema.Form, opts Options, mapping ErrorMapping) View {
	submit := form.SubmitLabel
	if submit == "" {
		submit = "Submit"
	}
	return View{
		FormID:      form.ID,
		Title:       form.Title,
		Description: form.Description,
		Mode:        string(form.Mode),
		Action:      opts.Action,
		SubmitLabel: submit,
		FormErrors:  mapping.Form,
		Hidden:      SortedHiddenFields(opts.Hidden...),
		Message:     opts.Message,
	}
}

func buildSection(part schema.Part, values model.Record, mapping ErrorMapping, focus string, disabled bool) SectionView {
	section := SectionView{ID: part.ID, Title: part.Title, Description: part.Description}
	for _, field := range part.Fields {
		section.Fields = append(section.Fields, buildField(field, values, mapping.Fields[field.Name], focus, disabled))
	}
	return section
}

func buildField(field model.FieldSchema, values model.Record, message, focus string, disabled bool) FieldView {
	value := values[field.Name]
	view := FieldView{
		Name:        field.Name,
		Label:       field.DisplayLabel(),
		Type:        string(field.Type),
		Widget:      widgetFor(field),
		Placeholder: field.Placeholder,
		Help:        field.Help,
		Required:    field.Required,
		Error:       message,
		Visible:     visible(field, values),
		VisibleWhen: field.VisibleWhen,
		Autofocus:   focus != "" && focus == field.Name,
		Disabled:    disabled,
	}

	switch v := value.(type) {
	case string:
		view.Text = v
	case float64:
		view.Text = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		view.Checked = v
	case []model.FileHandle:
		for _, file := range v {
			view.Files = append(view.Files, file.Name)
		}
	case nil:
	default:
		view.Text = fmt.Sprint(v)
	}

	selected := selection(value)
	for _, option := range field.Options {
		view.Options = append(view.Options, OptionView{
			Value:    option,
			Label:    option,
			Selected: slices.Contains(selected, option),
		})
	}

	for _, rule := range field.Rules {
		switch rule.Kind {
		case model.RuleKindMin:
			view.Min = rule.Value
		case model.RuleKindMax:
			view.Max = rule.Value
		case model.RuleKindFileTypes:
			view.Accept = strings.Join(rule.Values, ",")
		}
	}
	return view
}

func widgetFor(field model.FieldSchema) string {
	if field.Widget != "" {
		return field.Widget
	}
	switch field.Type {
	case model.FieldTypeNumber:
		return "number"
	case model.FieldTypeBoolean:
		return "checkbox"
	case model.FieldTypeEnum:
		return "select"
	case model.FieldTypeMultiSelect:
		return "multiselect"
	case model.FieldTypeFile:
		return "file"
	default:
		return "text"
	}
}

func visible(field model.FieldSchema, values model.Record) bool {
	if field.VisibleWhen == "" {
		return true
	}
	expr, err := condition.Compile(field.VisibleWhen)
	if err != nil {
		return true
	}
	return expr.Eval(values)
}

func selection(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	default:
		return nil
	}
}
