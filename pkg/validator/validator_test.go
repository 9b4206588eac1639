package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string    `validate:"required,max=10"`
	Kind     string    `validate:"required,oneof=NORMAL MERCHANDISE"`
	Deadline time.Time `validate:"required,future"`
}

func valid() sample {
	return sample{
		Name:     "ok",
		Kind:     "NORMAL",
		Deadline: time.Now().Add(time.Hour),
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(context.Background(), valid()))
}

func TestValidate_Required(t *testing.T) {
	s := valid()
	s.Name = ""
	err := Validate(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrFieldRequired)
}

func TestValidate_OneOf(t *testing.T) {
	s := valid()
	s.Kind = "BOGUS"
	err := Validate(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrInvalidFormat)
}

func TestValidate_Future(t *testing.T) {
	s := valid()
	s.Deadline = time.Now().Add(-time.Hour)
	err := Validate(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Date must be in the future")
}

func TestValidate_MaxLen(t *testing.T) {
	s := valid()
	s.Name = "this name is far too long"
	err := Validate(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrFieldExceedsMaxLen)
}
