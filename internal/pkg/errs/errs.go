// internal/pkg/errs/errs.go
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a business-rule failure so the HTTP layer can pick a
// status without inspecting error strings.
type Code string

const (
	CodeValidation        Code = "validation"
	CodeNotFound          Code = "not_found"
	CodeUnavailable       Code = "unavailable"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeQuantityLimit     Code = "quantity_limit_exceeded"
	CodeInvalidCoupon     Code = "invalid_coupon"
	CodeEmptyCart         Code = "empty_cart"
	CodeInvalidTransition Code = "invalid_transition"
	CodeForbidden         Code = "forbidden"
	CodeUnauthenticated   Code = "unauthenticated"
	CodeInternal          Code = "internal"
)

// Error is a coded business error
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain; unclassified errors are internal
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether the error chain carries the given code
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status class of its code.
// Business-rule violations are 400s; auth failures 401/403; absence 404;
// everything unclassified is a 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeUnavailable, CodeInsufficientStock,
		CodeQuantityLimit, CodeInvalidCoupon, CodeEmptyCart, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
