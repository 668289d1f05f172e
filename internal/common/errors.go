package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrExternal     = errors.New("external service error")
	ErrStorage      = errors.New("storage error")
)

// Error codes used with NewAppError.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeIngest     = "INGEST_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeQuarantine = "QUARANTINE_ERROR"
	CodeGateway    = "GATEWAY_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsConfigError reports whether err carries the CONFIG_ERROR code.
func IsConfigError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeConfig
}

// ConfigErrorf builds a CONFIG_ERROR wrapping ErrInvalidInput.
func ConfigErrorf(format string, args ...any) error {
	return NewAppError(CodeConfig, fmt.Sprintf(format, args...), ErrInvalidInput)
}
