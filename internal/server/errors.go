package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/resolve"
)

// ErrInvalidCredentials indicates a failed token request.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid client id or secret"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrStudentNotFound indicates the referenced student does not exist.
type ErrStudentNotFound struct {
	StudentID uuid.UUID
}

func (e *ErrStudentNotFound) Error() string {
	return fmt.Sprintf("student not found: %s", e.StudentID)
}

// ErrLLMUnavailable indicates the endpoint needs an LLM client but none is
// configured.
type ErrLLMUnavailable struct{}

func (e *ErrLLMUnavailable) Error() string {
	return "LLM client is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error,
// including the typed resolve errors bubbling up from a run.
func HTTPStatus(err error) int {
	var unknownSemester *resolve.UnknownSemesterError
	var missingPolicy *resolve.MissingPolicyError
	var loadErr *resolve.LoadError
	switch {
	case errors.As(err, &unknownSemester):
		return http.StatusNotFound
	case errors.As(err, &missingPolicy):
		return http.StatusUnprocessableEntity
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	}

	switch err.(type) {
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrStudentNotFound:
		return http.StatusNotFound
	case *ErrLLMUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
