package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError rejects malformed input before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidation creates a validation error for a specific field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError reports a state machine guard violation.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %q to %q", e.Entity, e.From, e.To)
}

// ConflictError reports a uniqueness or concurrent-creation conflict, such as
// a second active exception for the same assignment.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Message)
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// DeliveryFailure reports a single recipient/channel send failure. It is
// recorded in the dispatch result list, never propagated as the call's error.
type DeliveryFailure struct {
	Recipient string
	Channel   string
	Cause     error
}

func (e *DeliveryFailure) Error() string {
	return fmt.Sprintf("delivery to %s via %s failed: %v", e.Recipient, e.Channel, e.Cause)
}

func (e *DeliveryFailure) Unwrap() error { return e.Cause }

// DependencyUnavailable reports an unreachable persistence layer or provider.
// During a sweep it aborts the current assignment only; the sweep continues.
type DependencyUnavailable struct {
	Dependency string
	Cause      error
}

func (e *DependencyUnavailable) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Cause)
}

func (e *DependencyUnavailable) Unwrap() error { return e.Cause }

// HTTPStatus maps an error to the status code the transport layer should
// return. Unrecognized errors map to 500 and must be logged server-side with
// a generic client message.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		transition *InvalidTransitionError
		conflict   *ConflictError
		notFound   *NotFoundError
		dependency *DependencyUnavailable
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &transition):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &dependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to show callers. Validation,
// transition, conflict and not-found errors are actionable; everything else
// collapses to a generic message with full detail kept in server logs.
func ClientMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusNotFound:
		return err.Error()
	default:
		return "internal error"
	}
}
