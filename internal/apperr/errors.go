package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Repositories and services return these (optionally wrapped)
// so handlers can map them to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError collects field-level messages for one operation.
type ValidationError struct {
	Fields []FieldError
}

// NewValidation builds a ValidationError with a single field message.
func NewValidation(field string, value any, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, value, msg)
	return v
}

func (v *ValidationError) Add(field string, value any, msg string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Value: value, Message: msg})
}

// AddErr appends err under field. A *FieldError keeps its own message and value.
func (v *ValidationError) AddErr(field string, err error) {
	if err == nil {
		return
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		v.Add(field, fe.Value, fe.Message)
		return
	}
	v.Add(field, nil, err.Error())
}

func (v *ValidationError) Empty() bool { return v == nil || len(v.Fields) == 0 }

// OrNil returns nil when nothing was collected, so callers can `return v.OrNil()`.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for i := range v.Fields {
		parts = append(parts, v.Fields[i].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool { return target == ErrValidation }

// InvalidTransitionError is returned when a status change is not allowed.
type InvalidTransitionError struct {
	From string
	To   string
}

func NewInvalidTransition(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "<empty>"
	}
	return fmt.Sprintf("cannot transition from %s to %s", from, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidState }
