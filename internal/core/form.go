package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldEnum   FieldType = "enum"
)

var datePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// FormField describes one field of a registration dossier template.
type FormField struct {
	Name        string    `yaml:"name" json:"name"`
	DisplayName string    `yaml:"display_name" json:"display_name"`
	Type        FieldType `yaml:"type" json:"type"`
	Required    bool      `yaml:"required" json:"required"`
	Pattern     string    `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Help        string    `yaml:"help,omitempty" json:"help,omitempty"`
	Options     []string  `yaml:"options,omitempty" json:"options,omitempty"`
}

// Validate checks a raw user answer against the field's type and rule.
// Returns nil when the answer is acceptable.
func (f FormField) Validate(raw string) *ValidationError {
	value := strings.TrimSpace(raw)
	if value == "" {
		if f.Required {
			return &ValidationError{Field: f.Name, Reason: "trường này là bắt buộc"}
		}
		return nil
	}

	switch f.Type {
	case FieldNumber:
		// Accept Vietnamese digit grouping, e.g. "1.000.000" or "1,000,000".
		cleaned := strings.NewReplacer(".", "", ",", "").Replace(value)
		if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
			return &ValidationError{Field: f.Name, Reason: "giá trị phải là số"}
		}
	case FieldDate:
		if !datePattern.MatchString(value) {
			return &ValidationError{Field: f.Name, Reason: "định dạng ngày không đúng, vui lòng nhập theo dd/mm/yyyy"}
		}
		if _, err := time.Parse("02/01/2006", value); err != nil {
			return &ValidationError{Field: f.Name, Reason: "ngày không hợp lệ"}
		}
	case FieldEnum:
		for _, opt := range f.Options {
			if strings.EqualFold(value, opt) {
				return nil
			}
		}
		return &ValidationError{
			Field:  f.Name,
			Reason: "giá trị phải là một trong: " + strings.Join(f.Options, ", "),
		}
	}

	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err == nil && !re.MatchString(value) {
			return &ValidationError{Field: f.Name, Reason: "giá trị không đúng định dạng yêu cầu"}
		}
	}
	return nil
}

// FormTemplate is read-only reference data describing one dossier.
type FormTemplate struct {
	Name        string      `yaml:"name" json:"name"`
	DisplayName string      `yaml:"display_name" json:"display_name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []FormField `yaml:"fields" json:"fields"`
}

func (t *FormTemplate) Field(name string) (FormField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}

func (t *FormTemplate) RequiredFields() []FormField {
	var out []FormField
	for _, f := range t.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

type FormStatus string

const (
	FormActive               FormStatus = "active"
	FormAwaitingConfirmation FormStatus = "awaiting_confirmation"
	FormCompleted            FormStatus = "completed"
	FormCancelled            FormStatus = "cancelled"
)

// FormSession is the live state of one field-collection dialogue. It
// carries no wall-clock fields so that replaying the same answers
// against a fresh session of the same template reproduces it exactly.
type FormSession struct {
	TemplateName string            `json:"template_name"`
	Values       map[string]string `json:"values"`
	Cursor       string            `json:"cursor"`
	Status       FormStatus        `json:"status"`
	Turn         int               `json:"turn"`
	InputLog     []string          `json:"input_log,omitempty"`
}

// Collecting reports whether the session still owns the conversation's
// turns: user replies are field answers, not re-classified.
func (s *FormSession) Collecting() bool {
	return s != nil && (s.Status == FormActive || s.Status == FormAwaitingConfirmation)
}

func (s *FormSession) Clone() *FormSession {
	out := &FormSession{
		TemplateName: s.TemplateName,
		Cursor:       s.Cursor,
		Status:       s.Status,
		Turn:         s.Turn,
	}
	out.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		out.Values[k] = v
	}
	if len(s.InputLog) > 0 {
		out.InputLog = make([]string, len(s.InputLog))
		copy(out.InputLog, s.InputLog)
	}
	return out
}
