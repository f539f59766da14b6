// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrClosed          = errors.New("closed")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrDegraded           = errors.New("degraded: using cached or default data")

	// Computation errors
	ErrComputationAnomaly = errors.New("computation anomaly")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "learner", "estimator"
	Op      string // Operation that failed, e.g., "Open", "ProcessEvent"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Session domain errors
var (
	ErrSessionNotFound      = NewDomainError("session", "Find", ErrNotFound, "session not found")
	ErrSessionClosed        = NewDomainError("session", "Mutate", ErrClosed, "session is closed")
	ErrInvalidSessionID     = NewDomainError("session", "Validate", ErrInvalidID, "invalid session ID")
	ErrEventRejected        = NewDomainError("session", "ValidateEvent", ErrValidation, "event rejected by validator")
	ErrNegativeLatency      = NewDomainError("session", "ValidateEvent", ErrNegativeValue, "response time cannot be negative")
	ErrConfidenceOutOfRange = NewDomainError("session", "ValidateEvent", ErrValueOutOfRange, "confidence must be between 1 and 5")
	ErrDifficultyOutOfRange = NewDomainError("session", "ValidateEvent", ErrValueOutOfRange, "difficulty must be between 1 and 10")
	ErrUnknownSubject       = NewDomainError("session", "ValidateEvent", ErrInvalidInput, "unknown subject")
)

// Learner domain errors
var (
	ErrLearnerNotFound  = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrInvalidLearnerID = NewDomainError("learner", "Validate", ErrInvalidID, "invalid learner ID")
	ErrProfileDegraded  = NewDomainError("learner", "GetProfile", ErrDegraded, "profile lookup fell back to cached data")
)

// External service errors
var (
	ErrProfileStoreUnavailable = NewDomainError("profilestore", "Request", ErrServiceUnavailable, "profile store is unavailable")
	ErrProfileStoreTimeout     = NewDomainError("profilestore", "Request", ErrTimeout, "profile store request timeout")
	ErrCatalogUnavailable      = NewDomainError("catalog", "Request", ErrServiceUnavailable, "content catalog is unavailable")
	ErrArchiveWriteFailed      = NewDomainError("archive", "Write", ErrExternalService, "failed to write archive record")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClosed checks if the error indicates a closed session.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsDegraded checks if the error marks a degraded (cached/default data) outcome.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrDegraded)
}

// IsRetryable checks if the operation can be retried against an external service.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
