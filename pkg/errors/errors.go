package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a stable error kind that transport layers can map
// to status codes without string matching.
type ErrorCode int

const (
	CodeNotFound ErrorCode = iota + 1000
	CodeValidation
	CodeInvalidState
	CodeSlotUnavailable
	CodeExpired
	CodeUnauthorized
	CodeForbidden
	CodeInternal
)

// AppError carries an error code alongside the message and wrapped cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against constructor results
// with errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Err:     err,
	}
}

func InvalidState(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Message: message,
		Err:     err,
	}
}

func SlotUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    CodeSlotUnavailable,
		Message: message,
		Err:     err,
	}
}

func Expired(message string, err error) *AppError {
	return &AppError{
		Code:    CodeExpired,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CodeOf extracts the error code, defaulting to CodeInternal for errors
// outside the taxonomy.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message for err. Errors outside the
// taxonomy get a generic message so internals never leak to callers.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
