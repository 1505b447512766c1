package app

import (
	"fmt"
	"net/http"
)

// DomainError is a policy or validation failure with a stable wire code.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// errForbidden is the uniform policy-denied error; it carries no detail on
// purpose so denied callers learn nothing about the resource.
var errForbidden = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}
