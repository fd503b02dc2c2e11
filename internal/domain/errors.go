package domain

import (
	"errors"
	"fmt"
)

// Error codes for categorization
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"

	// Engine outcomes
	ErrCodePolicyBlocked      = "POLICY_BLOCKED"
	ErrCodeNoFormFound        = "NO_FORM_FOUND"
	ErrCodeRequiredField      = "REQUIRED_FIELD_UNRESOLVED"
	ErrCodeCaptchaRequired    = "CAPTCHA_REQUIRED"
	ErrCodeNavigationFailed   = "NAVIGATION_FAILED"
	ErrCodeSubmitNotFound     = "SUBMIT_CONTROL_NOT_FOUND"
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
)

// DomainError is a structured error for engine and persistence operations.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for error comparison
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel domain errors (used with errors.Is)
var (
	ErrNotFoundVal        = &DomainError{Code: ErrCodeNotFound, Message: "not found"}
	ErrInvalidInputVal    = &DomainError{Code: ErrCodeValidation, Message: "invalid input"}
	ErrPolicyBlockedVal   = &DomainError{Code: ErrCodePolicyBlocked, Message: "blocked by site policy"}
	ErrNoFormFoundVal   = &DomainError{Code: ErrCodeNoFormFound, Message: "no forms found"}
	ErrRequiredFieldVal = &DomainError{Code: ErrCodeRequiredField, Message: "required field unresolved"}
	ErrAlreadyExistsVal = &DomainError{Code: ErrCodeConflict, Message: "already exists"}
)

// NotFoundError creates a not found domain error
func NotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
		Err:     ErrNotFoundVal,
	}
}

// ValidationError creates a validation domain error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
		Err:     ErrInvalidInputVal,
	}
}

// AlreadyExistsError creates an already exists domain error
func AlreadyExistsError(resource, field, value string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Details: map[string]any{"resource": resource, "field": field, "value": value},
		Err:     ErrAlreadyExistsVal,
	}
}

// PolicyBlockedError creates the hard-stop error raised before any scraping
// fetch when compliance disallows the target.
func PolicyBlockedError(url string, reasons []string) *DomainError {
	return &DomainError{
		Code:    ErrCodePolicyBlocked,
		Message: fmt.Sprintf("compliance blocked %s", url),
		Details: map[string]any{"url": url, "reasons": reasons},
		Err:     ErrPolicyBlockedVal,
	}
}

// RequiredFieldError creates the error that fails a FILL step when no value
// resolves for a required field.
func RequiredFieldError(fieldName string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRequiredField,
		Message: fmt.Sprintf("no value resolved for required field %q", fieldName),
		Details: map[string]any{"field": fieldName},
		Err:     ErrRequiredFieldVal,
	}
}

// NoFormFoundError reports a company with no stored inquiry forms.
func NoFormFoundError(companyID any) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoFormFound,
		Message: fmt.Sprintf("no forms found for company %v", companyID),
		Details: map[string]any{"company_id": companyID},
		Err:     ErrNoFormFoundVal,
	}
}

// SubmitControlNotFoundError reports a form page where neither the stored
// selector nor the live fallback search located a submit control.
func SubmitControlNotFoundError(url string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSubmitNotFound,
		Message: fmt.Sprintf("no submit control found on %s", url),
		Details: map[string]any{"url": url},
	}
}

// BrowserUnavailableError reports that no browser page could be leased.
func BrowserUnavailableError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeBrowserUnavailable,
		Message: reason,
	}
}

// NavigationError wraps a page-load failure for a gated fetch.
func NavigationError(url string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeNavigationFailed,
		Message: fmt.Sprintf("navigation to %s failed", url),
		Details: map[string]any{"url": url},
		Err:     err,
	}
}

// IsSentinelError checks if err matches a sentinel error
func IsSentinelError(err error, sentinel *DomainError) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == sentinel.Code
	}
	return false
}

// ErrorCode returns the domain error code, or the empty string for plain
// errors.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
