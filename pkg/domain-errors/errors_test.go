package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "license not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInvalidState))
	})

	t.Run("rule already active is also already exists", func(t *testing.T) {
		err := New(CodeRuleAlreadyActive, "Renew rule already ACTIVE")
		assert.True(t, HasCode(err, CodeRuleAlreadyActive))
		assert.True(t, HasCode(err, CodeAlreadyExists))
		assert.False(t, HasCode(New(CodeAlreadyExists, "dup"), CodeRuleAlreadyActive))
	})

	t.Run("finds code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("issue: %w", New(CodeUnauthorized, "missing role"))
		assert.True(t, Is(err, CodeUnauthorized))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load license")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load license: connection reset", err.Error())
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeRuleAlreadyActive, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusUnprocessableEntity},
		{CodeValidation, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(New(tt.code, "x")))
		})
	}
}
