package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced to handlers, which translate them to HTTP status
// codes.
var (
	ErrModuleNotFound     = errors.New("module not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAttemptNotFound    = errors.New("attempt not found")

	ErrAssessmentInactive  = errors.New("assessment is not active")
	ErrAssessmentHasUsage  = errors.New("assessment has recorded attempts and cannot be deleted")
	ErrInsufficientContent = errors.New("not enough questions available")
)

// ValidationError describes one failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors accumulates field-level failures for one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a single-field validation failure.
func NewValidationError(field, message string, value any) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value}}
}

// PermissionError reports that a user may not perform an operation on a
// resource.
type PermissionError struct {
	UserID    string
	Resource  string
	Operation string
	Reason    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Operation, e.Resource, e.Reason)
}

func NewPermissionError(userID, resource, operation, reason string) *PermissionError {
	return &PermissionError{
		UserID:    userID,
		Resource:  resource,
		Operation: operation,
		Reason:    reason,
	}
}

// BusinessRuleError reports a semantically valid request that violates a
// domain rule.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModuleNotFound) ||
		errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}
