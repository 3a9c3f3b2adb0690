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

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)

	ErrTransaction = New(
		CodeTransaction,
		"The operation could not be completed because of concurrent changes, please retry",
		http.StatusServiceUnavailable,
	)
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func Validation(field, reason string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    fmt.Sprintf("%s %s", field, reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    []FieldError{{Field: field, Reason: reason}},
	}
}

func RequiredField(field string) *AppError {
	return Validation(field, "is required")
}

func InvalidField(field string) *AppError {
	return Validation(field, "is invalid")
}
