package errors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/Payphone-Digital/devcamper/pkg/advquery"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage copies a domain error with a more specific message.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
		Err:     domainErr.Err,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound       = NewDomainError("USER_NOT_FOUND", "User not found")
	ErrEmailExists        = NewDomainError("EMAIL_EXISTS", "Email already registered")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "Invalid credentials")
	ErrSelfDeletion       = NewDomainError("SELF_DELETION", "Users cannot delete themselves")

	// Authentication errors
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to access this route")
	ErrForbidden    = NewDomainError("FORBIDDEN", "Not authorized to perform this action")
	ErrInvalidToken = NewDomainError("INVALID_TOKEN", "Invalid or expired token")
	ErrTokenExpired = NewDomainError("TOKEN_EXPIRED", "Token has expired")

	ErrInvalidResetToken = NewDomainError("INVALID_RESET_TOKEN", "Invalid token")

	// Resource errors
	ErrBootcampNotFound  = NewDomainError("BOOTCAMP_NOT_FOUND", "Bootcamp not found")
	ErrCourseNotFound    = NewDomainError("COURSE_NOT_FOUND", "Course not found")
	ErrReviewNotFound    = NewDomainError("REVIEW_NOT_FOUND", "Review not found")
	ErrResourceNotFound  = NewDomainError("RESOURCE_NOT_FOUND", "Resource not found")
	ErrAlreadyPublished  = NewDomainError("ALREADY_PUBLISHED", "Publisher has already published a bootcamp")
	ErrDuplicateField    = NewDomainError("DUPLICATE_FIELD", "Duplicate field value entered")
	ErrGeocodeUnresolved = NewDomainError("GEOCODE_UNRESOLVED", "Address could not be geocoded")

	// Validation errors
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input")
	ErrInvalidQuery      = NewDomainError("INVALID_QUERY", "Invalid query parameter")
	ErrInvalidUpload     = NewDomainError("INVALID_UPLOAD", "Please upload an image file")
	ErrUploadTooLarge    = NewDomainError("UPLOAD_TOO_LARGE", "Uploaded file is too large")
	ErrIncorrectPassword = NewDomainError("INCORRECT_PASSWORD", "Password is incorrect")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "Server Error")
	ErrEmailNotSent       = NewDomainError("EMAIL_NOT_SENT", "Email could not be sent")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "Service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// FromStore translates persistence errors at the repository boundary.
// notFound is used for gorm.ErrRecordNotFound; unknown errors pass through unchanged.
func FromStore(err error, notFound *DomainError) error {
	switch {
	case err == nil:
		return nil
	case IsDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound == nil {
			notFound = ErrResourceNotFound
		}
		return WrapError(notFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return WrapError(ErrDuplicateField, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated), errors.Is(err, gorm.ErrInvalidData):
		return WrapError(ErrInvalidInput, err)
	case errors.Is(err, advquery.ErrInvalidQuery):
		var qe *advquery.QueryError
		if errors.As(err, &qe) {
			return WrapError(WithMessage(ErrInvalidQuery, qe.Error()), err)
		}
		return WrapError(ErrInvalidQuery, err)
	}
	return err
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// Check if it's a domain error
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "INVALID_QUERY", "INVALID_UPLOAD", "UPLOAD_TOO_LARGE",
		"DUPLICATE_FIELD", "EMAIL_EXISTS", "ALREADY_PUBLISHED", "GEOCODE_UNRESOLVED",
		"INVALID_RESET_TOKEN":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN",
		"TOKEN_EXPIRED", "INCORRECT_PASSWORD":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "FORBIDDEN", "SELF_DELETION":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND", "BOOTCAMP_NOT_FOUND", "COURSE_NOT_FOUND",
		"REVIEW_NOT_FOUND", "RESOURCE_NOT_FOUND":
		return http.StatusNotFound

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
