package apperrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a recoverable, caller-facing failure.
type ErrorCode string

// AppError is the application error type. All business failures are
// returned as *AppError; the transport layer maps HTTPCode, callers branch
// on Code.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAlreadyPaid) work for wrapped copies: two
// AppErrors match when their codes match.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !stderrors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithMessage returns a copy carrying a caller-specific message while
// keeping the code (and therefore errors.Is identity).
func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	clone.Message = message
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Predefined errors, one per taxonomy entry.
var (
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden          = New(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrInvalidCredentials = New(CodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
	ErrInvalidToken       = New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)

	ErrNotFound      = New(CodeNotFound, "Resource not found", http.StatusNotFound)
	ErrAlreadyExists = New(CodeAlreadyExists, "Resource already exists", http.StatusConflict)

	ErrInvalidTransition = New(CodeInvalidTransition, "Action is not legal for the job's current status", http.StatusConflict)
	ErrAlreadyPaid       = New(CodeAlreadyPaid, "Job is already paid for this assignment", http.StatusConflict)
	ErrInvalidCode       = New(CodeInvalidCode, "Incorrect code, try again", http.StatusBadRequest)

	ErrRoomArchived = New(CodeRoomArchived, "This proposal has been archived", http.StatusConflict)
	ErrJobClosed    = New(CodeJobClosed, "This job is no longer accepting proposals", http.StatusConflict)

	ErrDuplicatePayment = New(CodeDuplicatePayment, "Payment reference was already used", http.StatusConflict)

	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrUnavailable      = New(CodeUnavailable, "Service temporarily unavailable", http.StatusServiceUnavailable)
)

func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

func NotFound(resource string) *AppError {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s not found", resource))
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}
