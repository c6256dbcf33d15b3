package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned when a form template name is unknown.
	ErrTemplateNotFound = errors.New("form template not found")

	// ErrInvalidTransition is returned when a form operation is applied
	// in a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid form state transition")

	// ErrRetrievalUnavailable marks a transient failure of the embedding
	// or vector store backend.
	ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")

	// ErrGenerationUnavailable marks a transient failure of the
	// generation backend (error or timeout).
	ErrGenerationUnavailable = errors.New("generation backend unavailable")

	// ErrPersistence is fatal for the current request: the conversation
	// was not saved and the caller should retry the whole message.
	ErrPersistence = errors.New("conversation persistence failed")

	// ErrConversationNotFound is returned by lifecycle operations on an
	// unknown session id.
	ErrConversationNotFound = errors.New("conversation not found")
)

// ValidationError reports a rejected field answer. It is recovered
// locally: the user is re-prompted and the form cursor does not move.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for field %q: %s", e.Field, e.Reason)
}
