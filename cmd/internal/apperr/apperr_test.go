package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindConflict:        http.StatusConflict,
		KindInternal:        http.StatusInternalServerError,
		Kind(99):            http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Status(), k.String())
	}
}

func TestConstructors(t *testing.T) {
	v := Validation("All fields are required", "username")
	assert.Equal(t, KindValidation, v.Kind)
	assert.Equal(t, []string{"username"}, v.Errors)
	assert.Equal(t, http.StatusBadRequest, v.Status())

	assert.Equal(t, http.StatusUnauthorized, Unauthenticated("Invalid user credentials").Status())
	assert.Equal(t, http.StatusConflict, Conflict("taken").Status())

	cause := errors.New("db down")
	in := Internal(cause)
	assert.Equal(t, InternalMessage, in.Message)
	assert.ErrorIs(t, in, cause)
	assert.Contains(t, in.Error(), "db down")
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	orig := Conflict("Refresh already in progress, retry")
	wrapped := fmt.Errorf("refresh: %w", orig)
	got := From(wrapped)
	require.NotNil(t, got)
	assert.Same(t, orig, got)

	plain := From(context.DeadlineExceeded)
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, InternalMessage, plain.Message)
	assert.ErrorIs(t, plain, context.DeadlineExceeded)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnauthenticated, KindOf(Unauthenticated("x")))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
	assert.Equal(t, KindValidation, KindOf(Validation("x").WithCause(errors.New("y"))))
}
