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
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownFormType = errors.New("unknown form type")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrEmptySelection  = errors.New("column selection is empty")
	ErrModelMissing    = errors.New("no OCR model configured")
	ErrNoCredential    = errors.New("no vision credential configured")
	ErrOCRFailed       = errors.New("ocr failed")
	ErrDatabase        = errors.New("database error")
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
