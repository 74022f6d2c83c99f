package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetCategoryAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
	}{
		{"validation", NewValidationError("bad input"), CategoryValidation, http.StatusBadRequest},
		{"apportionment", NewApportionmentError("bad shares"), CategoryApportionment, http.StatusUnprocessableEntity},
		{"mismatch", NewMismatchError("different universes"), CategoryMismatch, http.StatusConflict},
		{"cancelled", NewCancelledError("stopped", nil), CategoryCancelled, 499},
		{"internal", NewInternalError("NaN", nil), CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestErrorStringCarriesCode(t *testing.T) {
	err := NewValidationError("confidence level must be in (0, 1)")
	assert.Equal(t, "[VALIDATION_ERROR] confidence level must be in (0, 1)", err.Error())
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryMismatch, CategoryOf(NewMismatchError("x")))
	assert.Equal(t, CategoryInternal, CategoryOf(stderrors.New("plain")))

	wrapped := fmt.Errorf("run failed: %w", NewCancelledError("stopped", nil))
	assert.Equal(t, CategoryCancelled, CategoryOf(wrapped))
	assert.True(t, IsCancelled(wrapped))
	assert.False(t, IsValidation(wrapped))
}

func TestToAppError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, ToAppError(nil))
	})

	t.Run("app errors pass through", func(t *testing.T) {
		original := NewApportionmentError("x")
		assert.Same(t, original, ToAppError(original))
	})

	t.Run("context cancellation maps to cancelled", func(t *testing.T) {
		appErr := ToAppError(context.Canceled)
		require.NotNil(t, appErr)
		assert.Equal(t, CategoryCancelled, appErr.Category)

		appErr = ToAppError(context.DeadlineExceeded)
		assert.Equal(t, CategoryCancelled, appErr.Category)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		appErr := ToAppError(stderrors.New("disk on fire"))
		assert.Equal(t, CategoryInternal, appErr.Category)
		assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	})
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := NewCancelledError("stopped", cause)
	assert.True(t, stderrors.Is(err, cause))
}
