package employeeerrors

import (
	"employee-forwarder/internal/shared/apperror"
	"net/http"
)

var (
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"Employee not found",
		http.StatusNotFound,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid employee ID",
		http.StatusBadRequest,
	)
	ErrConstraintViolation = apperror.New(
		apperror.CodeConstraintViolation,
		"Employee violates a data constraint",
		http.StatusBadRequest,
	)
	ErrInvalidUUID = apperror.New(
		apperror.CodeConstraintViolation,
		"Invalid employee uuid",
		http.StatusBadRequest,
	)
)
