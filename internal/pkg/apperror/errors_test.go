package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MapsCodeToStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeDatabaseError, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.code, "x").HTTPStatus)
		})
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", ErrIssueNotFound)

	assert.True(t, IsNotFound(wrapped))
	assert.ErrorIs(t, wrapped, ErrIssueNotFound)
	assert.True(t, IsForbidden(ErrAdminRequired))
	assert.True(t, IsValidation(ErrInvalidStatus))
	assert.True(t, IsPersistence(Persistence(errors.New("down"), "x")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

func TestPersistence_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause, "не удалось сохранить")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.Contains(t, err.Error(), "connection reset")
}
