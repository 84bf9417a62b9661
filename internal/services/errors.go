package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = validator.ErrValidationFailed
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
)

// ValidationErrors is returned when a request fails field validation
type ValidationErrors = validator.ValidationErrors

// NewValidationError builds a single field validation failure
func NewValidationError(field, message string, value any) error {
	return ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}}
}

// PermissionError reports that a profile may not act on a resource
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// BusinessRuleError reports a request that is well formed but not allowed in
// the current state of the resource
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]any
}

func NewBusinessRuleError(rule, message string, context map[string]any) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Is(target error) bool {
	return target == ErrConflict
}

// lookupError maps repository not-found errors to ErrNotFound
func lookupError(err error, resource string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", resource, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", resource, err)
}

// validationFailure wraps field errors so callers can match either form
func validationFailure(errs ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
