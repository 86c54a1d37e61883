package service

import (
	"errors"
	"net/http"
)

var (
	// ErrUserInput marks requests that cannot be served as asked (missing city, empty query)
	ErrUserInput = errors.New("invalid user input")
	// ErrUpstreamUnavailable marks failures of the model or catalog store
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInternal marks unexpected faults inside the pipeline
	ErrInternal = errors.New("internal error")
)

// UserInputError carries a message meant for the caller
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string { return e.Message }

func (e *UserInputError) Unwrap() error { return ErrUserInput }

// ErrorKind returns a stable label for logs and metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUserInput):
		return "user_input"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the status code returned with its envelope
func HTTPStatus(err error) int {
	switch ErrorKind(err) {
	case "none":
		return http.StatusOK
	case "user_input":
		return http.StatusBadRequest
	case "upstream":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
