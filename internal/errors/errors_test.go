package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Session not found")
		assert.Equal(t, "NOT_FOUND: Session not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("signature is invalid")
		err := Wrap(ErrCodeInvalidToken, "Invalid token", cause)
		assert.Contains(t, err.Error(), "INVALID_TOKEN")
		assert.Contains(t, err.Error(), "Invalid token")
		assert.Contains(t, err.Error(), "signature is invalid")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "content", "reason": "empty"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken},
		{"TokenExpired", func() *AppError { return TokenExpired() }, ErrCodeTokenExpired},
		{"NotFound", func() *AppError { return NotFound("Session") }, ErrCodeNotFound},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("content", "empty") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("session_id") }, ErrCodeMissingRequired},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Run("IsAppError detects AppError", func(t *testing.T) {
		assert.True(t, IsAppError(NotFound("Session")))
		assert.False(t, IsAppError(errors.New("plain")))
	})

	t.Run("AsAppError unwraps nested AppError", func(t *testing.T) {
		inner := NotFound("Post")
		wrapped := Wrap(ErrCodeInternal, "outer", inner)

		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeInternal, appErr.Code)
	})

	t.Run("GetCode falls back to internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, GetCode(NotFound("Session")))
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	})
}
