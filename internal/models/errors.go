package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Auth error codes surfaced to clients. These mirror the coded failures of
// the auth service so the UI can map them to user-facing strings.
const (
	CodeInvalidCredential   = "AUTH_INVALID_CREDENTIAL"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
	CodeWrongPassword       = "AUTH_WRONG_PASSWORD"
	CodeEmailInUse          = "AUTH_EMAIL_IN_USE"
	CodeWeakPassword        = "AUTH_WEAK_PASSWORD"
	CodeInvalidEmail        = "AUTH_INVALID_EMAIL"
	CodeOperationNotAllowed = "AUTH_OPERATION_NOT_ALLOWED"
	CodeRateLimited         = "AUTH_RATE_LIMITED"
	CodeUnknown             = "AUTH_UNKNOWN"
)

// General application error codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// NewAuthError builds an AppError with one of the auth codes above.
func NewAuthError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// CodeOf extracts the application error code from err, or CodeUnknown.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HTTPStatus maps an application error code to an HTTP status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidEmail, CodeWeakPassword:
		return fiber.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredential, CodeWrongPassword:
		return fiber.StatusUnauthorized
	case CodeForbidden, CodeOperationNotAllowed:
		return fiber.StatusForbidden
	case CodeNotFound, CodeUserNotFound:
		return fiber.StatusNotFound
	case CodeConflict, CodeEmailInUse:
		return fiber.StatusConflict
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{Error: err.Error()}
	}

	return c.Status(status).JSON(response)
}
