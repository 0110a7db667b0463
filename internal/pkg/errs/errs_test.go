package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeEmptyCart, "cart is empty")
	assert.Equal(t, CodeEmptyCart, CodeOf(err))

	wrapped := fmt.Errorf("checkout failed: %w", err)
	assert.Equal(t, CodeEmptyCart, CodeOf(wrapped))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk on fire")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestIsCode(t *testing.T) {
	err := Newf(CodeInsufficientStock, "insufficient stock for product %d", 7)
	assert.True(t, IsCode(err, CodeInsufficientStock))
	assert.False(t, IsCode(err, CodeNotFound))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "failed to reach broker", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to reach broker")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInsufficientStock, http.StatusBadRequest},
		{CodeQuantityLimit, http.StatusBadRequest},
		{CodeInvalidCoupon, http.StatusBadRequest},
		{CodeEmptyCart, http.StatusBadRequest},
		{CodeInvalidTransition, http.StatusBadRequest},
		{CodeUnavailable, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(New(tt.code, "boom")), string(tt.code))
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unclassified")))
}
