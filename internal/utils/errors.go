package utils

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // User is authenticated but doesn't own the entity
	ErrInvalidToken = "INVALID_TOKEN"

	// Entity-specific errors
	ErrUserNotFound  = "USER_NOT_FOUND"
	ErrGroupNotFound = "GROUP_NOT_FOUND"
	ErrPostNotFound  = "POST_NOT_FOUND"
	ErrFollowMissing = "FOLLOW_NOT_FOUND"

	// Store communication errors
	ErrStoreTimeout = "STORE_TIMEOUT"

	ErrDatabase = "database_error"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewUserNotFoundError(username string) *AppError {
	return &AppError{
		Code:    ErrUserNotFound,
		Message: "User not found: " + username,
	}
}

func NewGroupNotFoundError(slug string) *AppError {
	return &AppError{
		Code:    ErrGroupNotFound,
		Message: "Group not found: " + slug,
	}
}

func NewPostNotFoundError() *AppError {
	return &AppError{
		Code:    ErrPostNotFound,
		Message: "Post not found",
	}
}

func NewStoreTimeoutError(op string) *AppError {
	return &AppError{
		Code:    ErrStoreTimeout,
		Message: "Store communication timeout: " + op,
	}
}

// IsErrorCode reports whether any AppError in err's chain carries code.
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound matches the generic and the entity-specific not-found codes.
func IsNotFound(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrNotFound, ErrUserNotFound, ErrGroupNotFound, ErrPostNotFound, ErrFollowMissing:
		return true
	}
	return false
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrUnauthorized ||
			appErr.Code == ErrForbidden ||
			appErr.Code == ErrInvalidToken
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrUserNotFound, ErrGroupNotFound, ErrPostNotFound, ErrFollowMissing:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrDuplicate:
		return http.StatusConflict
	case ErrDatabase, ErrStoreTimeout:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor maps any error to an HTTP status, defaulting to 500.
func StatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return AppErrorToHTTPStatus(appErr.Code)
	}
	return http.StatusInternalServerError
}
