package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Builders mark concrete errors with one of these so callers
// can branch with errors.Is regardless of how deeply the error was wrapped.
var (
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists       = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict     = new(ErrCodeVersionConflict, "version conflict")
	ErrValidation          = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation    = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied    = new(ErrCodePermissionDenied, "permission denied")
	ErrUnauthorized        = new(ErrCodeUnauthorized, "unauthorized")
	ErrRateLimited         = new(ErrCodeRateLimited, "too many requests")
	ErrHTTPClient          = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase            = new(ErrCodeDatabase, "database error")
	ErrSystem              = new(ErrCodeSystemError, "system error")
	ErrInvalidSignature    = new(ErrCodeInvalidSignature, "invalid webhook signature")
	ErrProviderUnavailable = new(ErrCodeProviderUnavailable, "billing provider unavailable")
	ErrTenantNotFound      = new(ErrCodeTenantNotFound, "tenant not found")
	ErrUnknownPlan         = new(ErrCodeUnknownPlan, "unknown plan identifier")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:          http.StatusInternalServerError,
		ErrDatabase:            http.StatusInternalServerError,
		ErrNotFound:            http.StatusNotFound,
		ErrTenantNotFound:      http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrVersionConflict:     http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrInvalidOperation:    http.StatusBadRequest,
		ErrInvalidSignature:    http.StatusBadRequest,
		ErrUnknownPlan:         http.StatusBadRequest,
		ErrPermissionDenied:    http.StatusForbidden,
		ErrUnauthorized:        http.StatusUnauthorized,
		ErrRateLimited:         http.StatusTooManyRequests,
		ErrProviderUnavailable: http.StatusServiceUnavailable,
		ErrSystem:              http.StatusInternalServerError,
	}
)

const (
	ErrCodeHTTPClient          = "http_client_error"
	ErrCodeSystemError         = "system_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeVersionConflict     = "version_conflict"
	ErrCodeValidation          = "validation_error"
	ErrCodeInvalidOperation    = "invalid_operation"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeDatabase            = "database_error"
	ErrCodeInvalidSignature    = "invalid_signature"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeTenantNotFound      = "tenant_not_found"
	ErrCodeUnknownPlan         = "unknown_plan"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsInvalidSignature checks if a webhook was rejected on authenticity
func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

// IsProviderUnavailable reports a transient billing provider failure.
// Callers must treat it as "no new information".
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsTenantNotFound checks if a tenant hint could not be resolved
func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsUnknownPlan(err error) bool {
	return errors.Is(err, ErrUnknownPlan)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// HTTPStatusFromErr maps a marked error to its response status.
// Unmarked errors are reported as 500.
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
