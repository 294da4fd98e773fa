// Package errors defines the sentinel errors shared by the search engine and
// its service layers, plus the HTTP status mapping used only at the API edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrOutOfRange      = errors.New("index out of range")
	ErrUnknownDocument = errors.New("unknown document")
	ErrDocumentExists  = errors.New("document already exists")
	ErrInternal        = errors.New("internal error")
)

// AppError attaches a human-readable message to a sentinel. The service
// layer builds these when it needs a custom message; the core engine wraps
// sentinels with fmt.Errorf instead.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatusCode maps a core error to the status code the API layer should
// respond with.
func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrDocumentExists):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownDocument):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
