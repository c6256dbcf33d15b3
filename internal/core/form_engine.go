package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// FormEngine drives the field-collection state machine. Every operation
// takes a session value and returns a new one; the caller decides when
// the result becomes durable. SubmitAnswer mutates at most one field
// per call, so a failed turn can be retried against the last saved
// state without corrupting earlier answers.
type FormEngine struct {
	templates TemplateRepository
	logger    *zap.Logger
}

func NewFormEngine(templates TemplateRepository, logger *zap.Logger) *FormEngine {
	return &FormEngine{templates: templates, logger: logger}
}

// Start creates a fresh session for the named template. A template with
// no required fields goes straight to awaiting_confirmation.
func (e *FormEngine) Start(templateName string) (*FormSession, *FormTemplate, error) {
	tmpl, err := e.templates.Get(templateName)
	if err != nil {
		return nil, nil, err
	}

	session := &FormSession{
		TemplateName: tmpl.Name,
		Values:       make(map[string]string),
		Status:       FormActive,
		Cursor:       nextCursor(tmpl, nil),
	}
	if session.Cursor == "" {
		session.Status = FormAwaitingConfirmation
	}

	e.logger.Info("form session started",
		zap.String("template", tmpl.Name),
		zap.String("first_field", session.Cursor))
	return session, tmpl, nil
}

// SubmitAnswer validates raw input against the cursor field. On a
// validation failure the returned session keeps the same values and
// cursor, and the ValidationError tells the caller what to re-prompt.
func (e *FormEngine) SubmitAnswer(session *FormSession, raw string) (*FormSession, *ValidationError, error) {
	if session.Status != FormActive {
		return nil, nil, fmt.Errorf("%w: submit_answer in status %q", ErrInvalidTransition, session.Status)
	}
	tmpl, err := e.templates.Get(session.TemplateName)
	if err != nil {
		return nil, nil, err
	}

	field, ok := tmpl.Field(session.Cursor)
	if !ok {
		// Integrity bug, not a recoverable condition: the cursor must
		// always reference a template field while collecting.
		return nil, nil, fmt.Errorf("%w: cursor %q not in template %q",
			ErrInvalidTransition, session.Cursor, session.TemplateName)
	}

	next := session.Clone()
	next.Turn++
	next.InputLog = append(next.InputLog, raw)

	if verr := field.Validate(raw); verr != nil {
		return next, verr, nil
	}

	next.Values[field.Name] = strings.TrimSpace(raw)
	next.Cursor = nextCursor(tmpl, next.Values)
	if next.Cursor == "" {
		next.Status = FormAwaitingConfirmation
	}
	return next, nil, nil
}

// Cancel aborts a collecting session.
func (e *FormEngine) Cancel(session *FormSession) (*FormSession, error) {
	if !session.Collecting() {
		return nil, fmt.Errorf("%w: cancel in status %q", ErrInvalidTransition, session.Status)
	}
	next := session.Clone()
	next.Turn++
	next.Status = FormCancelled
	next.Cursor = ""
	return next, nil
}

// Confirm finalizes a session; only valid while awaiting confirmation.
func (e *FormEngine) Confirm(session *FormSession) (*FormSession, error) {
	if session.Status != FormAwaitingConfirmation {
		return nil, fmt.Errorf("%w: confirm in status %q", ErrInvalidTransition, session.Status)
	}
	next := session.Clone()
	next.Turn++
	next.Status = FormCompleted
	return next, nil
}

// Edit reopens a single field from the confirmation step. The stored
// value is cleared and the cursor repositioned so the next answer
// replaces it.
func (e *FormEngine) Edit(session *FormSession, fieldName string) (*FormSession, error) {
	if session.Status != FormAwaitingConfirmation {
		return nil, fmt.Errorf("%w: edit in status %q", ErrInvalidTransition, session.Status)
	}
	tmpl, err := e.templates.Get(session.TemplateName)
	if err != nil {
		return nil, err
	}
	if _, ok := tmpl.Field(fieldName); !ok {
		return nil, fmt.Errorf("%w: field %q not in template %q",
			ErrInvalidTransition, fieldName, session.TemplateName)
	}

	next := session.Clone()
	next.Turn++
	delete(next.Values, fieldName)
	next.Status = FormActive
	next.Cursor = nextCursor(tmpl, next.Values)
	if next.Cursor == "" {
		// Optional field edited: ask for it explicitly.
		next.Cursor = fieldName
	}
	return next, nil
}

// nextCursor returns the first required field without a valid value, or
// "" when the form is complete. This is the cursor invariant.
func nextCursor(tmpl *FormTemplate, values map[string]string) string {
	for _, f := range tmpl.Fields {
		if !f.Required {
			continue
		}
		v, ok := values[f.Name]
		if !ok || f.Validate(v) != nil {
			return f.Name
		}
	}
	return ""
}
