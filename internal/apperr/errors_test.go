package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_CollectsFields(t *testing.T) {
	v := &ValidationError{}
	assert.True(t, v.Empty())
	assert.NoError(t, v.OrNil())

	v.Add("full_name", "", "full_name is required")
	v.AddErr("phone_number", &FieldError{Value: "123", Message: "invalid phone number format"})
	v.AddErr("region", nil)

	assert.False(t, v.Empty())
	if assert.Len(t, v.Fields, 2) {
		assert.Equal(t, "phone_number", v.Fields[1].Field)
		assert.Equal(t, "123", v.Fields[1].Value)
	}

	err := fmt.Errorf("create: %w", v.OrNil())
	assert.ErrorIs(t, err, ErrValidation)
	var got *ValidationError
	assert.True(t, errors.As(err, &got))
	assert.Contains(t, err.Error(), "full_name is required")
}

func TestInvalidTransitionError_NamesStates(t *testing.T) {
	err := NewInvalidTransition("filled", "printed")
	assert.Equal(t, "cannot transition from filled to printed", err.Error())
	assert.ErrorIs(t, fmt.Errorf("wrap: %w", err), ErrInvalidState)
	assert.NotErrorIs(t, err, ErrConflict)

	assert.Contains(t, NewInvalidTransition("", "approved").Error(), "<empty>")
}
