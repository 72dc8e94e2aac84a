package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Error is a failure a handler can hand straight to the client.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func newError(status, code int, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(code int, message string) *Error {
	return newError(http.StatusBadRequest, code, message)
}

func Unauthorized(code int, message string) *Error {
	return newError(http.StatusUnauthorized, code, message)
}

func Forbidden(code int, message string) *Error {
	return newError(http.StatusForbidden, code, message)
}

func NotFound(code int, message string) *Error {
	return newError(http.StatusNotFound, code, message)
}

func Conflict(code int, message string) *Error {
	return newError(http.StatusConflict, code, message)
}

// Internal wraps an unexpected failure. The cause is logged by the caller, never shown.
func Internal(code int, message string) *Error {
	return newError(http.StatusInternalServerError, code, message)
}

// notFoundOr turns gorm.ErrRecordNotFound into a 404 and anything else into a 500.
func notFoundOr(err error, code404 int, msg404 string, code500 int, msg500 string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(code404, msg404)
	}
	return wrapInternal(err, code500, msg500)
}

func wrapInternal(err error, code int, message string) error {
	logError(message, err)
	return Internal(code, message)
}
