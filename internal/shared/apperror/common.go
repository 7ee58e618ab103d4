package apperror

import (
	"fmt"
	"net/http"
)

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrInternal = New(
		CodeInternalError,
		"Internal server error",
		http.StatusInternalServerError,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)
)

// RequiredField reports a missing mandatory field, e.g. "Name is required".
func RequiredField(field string) *AppError {
	return New(
		CodeConstraintViolation,
		fmt.Sprintf("%s is required", field),
		http.StatusBadRequest,
	)
}

// InvalidField reports a field that failed a validation rule.
func InvalidField(field string) *AppError {
	return New(
		CodeConstraintViolation,
		fmt.Sprintf("%s is invalid", field),
		http.StatusBadRequest,
	)
}

// BindFailed wraps a request decoding failure (malformed JSON, wrong types).
func BindFailed(err error) *AppError {
	return Wrap(err, CodeBindError, "Malformed request body", http.StatusBadRequest)
}
